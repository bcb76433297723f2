package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/restosuite/backend/internal/domain/mapping"
)

// Cache sizing. Entries expire after the TTL so mapping edits made by
// another instance are picked up within one window; the LRU bound keeps a
// misbehaving agent from growing the cache without limit.
const (
	DefaultMappingCacheTTL  = 5 * time.Minute
	DefaultMappingCacheSize = 10000
)

// cachedResolution wraps a resolution so confirmed misses can be cached too.
// A nil resolution marks a negative entry.
type cachedResolution struct {
	resolution *mapping.Resolution
}

// MappingCache is a process-local, TTL-bounded LRU over mapping resolutions.
type MappingCache struct {
	lru *expirable.LRU[string, cachedResolution]
}

// NewMappingCache creates a mapping cache with the default bounds
func NewMappingCache() *MappingCache {
	return NewMappingCacheWithConfig(DefaultMappingCacheSize, DefaultMappingCacheTTL)
}

// NewMappingCacheWithConfig creates a mapping cache with explicit bounds
func NewMappingCacheWithConfig(size int, ttl time.Duration) *MappingCache {
	return &MappingCache{
		lru: expirable.NewLRU[string, cachedResolution](size, nil, ttl),
	}
}

// Get returns a cached positive resolution
func (c *MappingCache) Get(key string) (*mapping.Resolution, bool) {
	entry, ok := c.lru.Get(key)
	if !ok || entry.resolution == nil {
		return nil, false
	}
	return entry.resolution, true
}

// Set caches a positive resolution
func (c *MappingCache) Set(key string, r *mapping.Resolution) {
	c.lru.Add(key, cachedResolution{resolution: r})
}

// SetNegative records a confirmed miss
func (c *MappingCache) SetNegative(key string) {
	c.lru.Add(key, cachedResolution{})
}

// GetNegative reports whether key is a cached confirmed miss
func (c *MappingCache) GetNegative(key string) bool {
	entry, ok := c.lru.Get(key)
	return ok && entry.resolution == nil
}

// Invalidate drops a single entry (write-through on mapping edits)
func (c *MappingCache) Invalidate(key string) {
	c.lru.Remove(key)
}

// Purge drops every entry
func (c *MappingCache) Purge() {
	c.lru.Purge()
}

// Len returns the number of live entries
func (c *MappingCache) Len() int {
	return c.lru.Len()
}

// Ensure MappingCache implements mapping.Cache
var _ mapping.Cache = (*MappingCache)(nil)
