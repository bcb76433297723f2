package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeContentHash(t *testing.T) {
	t.Run("is deterministic and key-order independent", func(t *testing.T) {
		a := ComputeContentHash(map[string]string{"sku": "A-1", "name": "Flour", "price": "12.50"})
		b := ComputeContentHash(map[string]string{"price": "12.50", "name": "Flour", "sku": "A-1"})
		assert.Equal(t, a, b)
		assert.Len(t, a, 64)
	})

	t.Run("changes when any field changes", func(t *testing.T) {
		base := ComputeContentHash(map[string]string{"sku": "A-1", "price": "12.50"})
		changed := ComputeContentHash(map[string]string{"sku": "A-1", "price": "12.51"})
		assert.NotEqual(t, base, changed)
	})

	t.Run("empty map still hashes", func(t *testing.T) {
		assert.Len(t, ComputeContentHash(nil), 64)
	})
}

func TestComputeRangeChecksum(t *testing.T) {
	rows := []KeyHash{
		{Key: "A-1", ContentHash: "aaa"},
		{Key: "A-2", ContentHash: "bbb"},
	}
	shuffled := []KeyHash{
		{Key: "A-2", ContentHash: "bbb"},
		{Key: "A-1", ContentHash: "aaa"},
	}

	assert.Equal(t, ComputeRangeChecksum(rows), ComputeRangeChecksum(shuffled))

	rows[1].ContentHash = "ccc"
	assert.NotEqual(t, ComputeRangeChecksum(rows), ComputeRangeChecksum(shuffled))
}

func TestDecideWrite(t *testing.T) {
	now := time.Now()
	hash := "deadbeef"

	t.Run("applies when no stored record exists", func(t *testing.T) {
		assert.Equal(t, DecisionApply, DecideWrite(hash, now, nil))
	})

	t.Run("skips identical content", func(t *testing.T) {
		stored := &StoredMeta{ContentHash: hash, LastSyncedAt: now.Add(-time.Hour)}
		assert.Equal(t, DecisionSkip, DecideWrite(hash, now, stored))
	})

	t.Run("rejects stale snapshots", func(t *testing.T) {
		stored := &StoredMeta{ContentHash: "other", LastSyncedAt: now}
		assert.Equal(t, DecisionStale, DecideWrite(hash, now.Add(-time.Minute), stored))
	})

	t.Run("applies newer content", func(t *testing.T) {
		stored := &StoredMeta{ContentHash: "other", LastSyncedAt: now.Add(-time.Minute)}
		assert.Equal(t, DecisionApply, DecideWrite(hash, now, stored))
	})
}
