package shared

import (
	"context"
	"time"
)

// IdempotencyStore tracks already-processed keys so at-least-once callbacks
// from vendor agents collapse into exactly-once effects.
type IdempotencyStore interface {
	// MarkProcessed marks a key as processed with a TTL. Returns true if the
	// key was newly marked, false if it was already processed.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// IsProcessed checks whether a key has already been processed.
	IsProcessed(ctx context.Context, key string) (bool, error)
	// Close releases store resources.
	Close() error
}
