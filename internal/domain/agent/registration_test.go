package agent

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistration(t *testing.T) {
	t.Run("creates online registration", func(t *testing.T) {
		reg, err := NewRegistration(uuid.New(), "https://agent.local:8443", "sage100", "$2a$10$hash")
		require.NoError(t, err)
		assert.Equal(t, StatusOnline, reg.Status)
		assert.WithinDuration(t, time.Now(), reg.LastHeartbeat, time.Second)
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		_, err := NewRegistration(uuid.Nil, "https://agent", "sage100", "hash")
		assert.Error(t, err)

		_, err = NewRegistration(uuid.New(), "", "sage100", "hash")
		assert.Error(t, err)

		_, err = NewRegistration(uuid.New(), "https://agent", "sage100", "")
		assert.Error(t, err)
	})
}

func TestRegistration_DeriveStatus(t *testing.T) {
	now := time.Now()

	cases := []struct {
		name string
		age  time.Duration
		want Status
	}{
		{"fresh heartbeat is online", 10 * time.Second, StatusOnline},
		{"just under a minute is online", 59 * time.Second, StatusOnline},
		{"past a minute is degraded", 61 * time.Second, StatusDegraded},
		{"just under five minutes is degraded", 299 * time.Second, StatusDegraded},
		{"past five minutes is offline", 301 * time.Second, StatusOffline},
		{"hours of silence is offline", 6 * time.Hour, StatusOffline},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reg := &Registration{LastHeartbeat: now.Add(-tc.age)}
			assert.Equal(t, tc.want, reg.DeriveStatus(now))
		})
	}
}

func TestRegistration_Heartbeat(t *testing.T) {
	reg := &Registration{
		Status:        StatusOffline,
		LastHeartbeat: time.Now().Add(-time.Hour),
	}

	now := time.Now()
	reg.Heartbeat(now)

	assert.Equal(t, StatusOnline, reg.Status)
	assert.Equal(t, now, reg.LastHeartbeat)
}

func TestRegistration_Rotate(t *testing.T) {
	reg, _ := NewRegistration(uuid.New(), "https://old", "sage100", "old-hash")
	reg.Status = StatusOffline

	reg.Rotate("https://new", "ebp", "new-hash")
	assert.Equal(t, "https://new", reg.AgentURL)
	assert.Equal(t, "ebp", reg.ErpType)
	assert.Equal(t, "new-hash", reg.TokenHash)
	assert.Equal(t, StatusOnline, reg.Status)
	assert.WithinDuration(t, time.Now(), reg.LastHeartbeat, time.Second)
}
