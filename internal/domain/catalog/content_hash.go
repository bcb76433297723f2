package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Content Hashing
// ---------------------------------------------------------------------------

// ComputeContentHash computes a stable SHA-256 digest over the sync-relevant
// fields of a record. Fields are serialized as sorted "key=value" lines so the
// hash does not depend on map iteration order or caller field ordering.
func ComputeContentHash(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(fields[k])
		b.WriteByte('\n')
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// ComputeRangeChecksum computes a digest over an ordered sequence of
// (naturalKey, contentHash) pairs. Both sides of a reconciliation compute the
// same digest over the same logical range; equality means no drift.
func ComputeRangeChecksum(pairs []KeyHash) string {
	h := sha256.New()
	for _, p := range pairs {
		fmt.Fprintf(h, "%s:%s\n", p.Key, p.ContentHash)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// KeyHash is a (natural key, content hash) pair used for range checksums.
type KeyHash struct {
	Key         string
	ContentHash string
}

// ---------------------------------------------------------------------------
// Dedup Gate
// ---------------------------------------------------------------------------

// WriteDecision is the outcome of comparing an incoming record against the
// stored one.
type WriteDecision string

const (
	// DecisionApply indicates the incoming record differs and must be written
	DecisionApply WriteDecision = "APPLY"
	// DecisionSkip indicates the incoming record is identical to the stored one
	DecisionSkip WriteDecision = "SKIP"
	// DecisionStale indicates the incoming record is older than the stored one
	DecisionStale WriteDecision = "STALE"
)

// StoredMeta is the minimal view of a stored record the dedup gate needs.
type StoredMeta struct {
	ContentHash  string
	LastSyncedAt time.Time
}

// DecideWrite compares an incoming (hash, syncedAt) pair against the stored
// record, if any. Agents are the sole writers per vendor namespace, so
// last-write-wins on timestamp is sufficient as a staleness guard.
func DecideWrite(incomingHash string, incomingSyncedAt time.Time, stored *StoredMeta) WriteDecision {
	if stored == nil {
		return DecisionApply
	}
	if stored.ContentHash == incomingHash {
		return DecisionSkip
	}
	if !incomingSyncedAt.IsZero() && incomingSyncedAt.Before(stored.LastSyncedAt) {
		return DecisionStale
	}
	return DecisionApply
}
