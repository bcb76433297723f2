package sync

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJob(t *testing.T) {
	payload := json.RawMessage(`{"order_number":"SO-1001"}`)

	t.Run("creates pending job with defaults", func(t *testing.T) {
		job, err := NewJob(uuid.New(), uuid.New(), OperationOrderCreate, payload, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, JobStatusPending, job.Status)
		assert.Equal(t, 0, job.RetryCount)
		assert.Equal(t, DefaultMaxRetries, job.MaxRetries)
		assert.Nil(t, job.NextRetryAt)
		assert.WithinDuration(t, time.Now().Add(DefaultJobTTL), job.ExpiresAt, 2*time.Second)
	})

	t.Run("honors a custom retry budget and ttl", func(t *testing.T) {
		job, err := NewJob(uuid.New(), uuid.New(), OperationOrderCreate, payload, 3, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, 3, job.MaxRetries)
		assert.WithinDuration(t, time.Now().Add(time.Hour), job.ExpiresAt, 2*time.Second)
	})

	t.Run("rejects nil vendor or order", func(t *testing.T) {
		_, err := NewJob(uuid.Nil, uuid.New(), OperationOrderCreate, payload, 0, 0)
		assert.Error(t, err)

		_, err = NewJob(uuid.New(), uuid.Nil, OperationOrderCreate, payload, 0, 0)
		assert.Error(t, err)
	})

	t.Run("rejects unknown operation", func(t *testing.T) {
		_, err := NewJob(uuid.New(), uuid.New(), Operation("SHRED"), payload, 0, 0)
		assert.Error(t, err)
	})
}

func TestJob_Start(t *testing.T) {
	t.Run("moves pending job to processing", func(t *testing.T) {
		job, _ := NewJob(uuid.New(), uuid.New(), OperationOrderCreate, nil, 0, 0)
		err := job.Start()
		require.NoError(t, err)
		assert.Equal(t, JobStatusProcessing, job.Status)
		assert.NotNil(t, job.StartedAt)
	})

	t.Run("fails for non-pending jobs", func(t *testing.T) {
		for _, status := range []JobStatus{JobStatusProcessing, JobStatusCompleted, JobStatusFailed} {
			job := &Job{Status: status}
			assert.Error(t, job.Start())
		}
	})
}

func TestJob_Complete(t *testing.T) {
	t.Run("records erp reference", func(t *testing.T) {
		job, _ := NewJob(uuid.New(), uuid.New(), OperationOrderCreate, nil, 0, 0)
		require.NoError(t, job.Start())

		err := job.Complete("ERP-77421")
		require.NoError(t, err)
		assert.Equal(t, JobStatusCompleted, job.Status)
		require.NotNil(t, job.ErpReference)
		assert.Equal(t, "ERP-77421", *job.ErpReference)
		assert.NotNil(t, job.CompletedAt)
	})

	t.Run("fails for non-processing jobs", func(t *testing.T) {
		job := &Job{Status: JobStatusPending}
		assert.Error(t, job.Complete("ERP-1"))
	})
}

func TestJob_MarkRetryable_ExponentialBackoff(t *testing.T) {
	job, _ := NewJob(uuid.New(), uuid.New(), OperationOrderCreate, nil, 0, 0)

	expected := []time.Duration{
		1 * time.Minute,
		2 * time.Minute,
		4 * time.Minute,
		8 * time.Minute,
	}

	for i, want := range expected {
		require.NoError(t, job.Start())
		job.MarkRetryable("agent timeout")

		assert.Equal(t, i+1, job.RetryCount)
		assert.Equal(t, JobStatusPending, job.Status)
		require.NotNil(t, job.NextRetryAt)
		backoff := time.Until(*job.NextRetryAt)
		assert.InDelta(t, want.Seconds(), backoff.Seconds(), 2.0, "attempt %d", i+1)
	}

	// Fifth failure exhausts the budget
	require.NoError(t, job.Start())
	job.MarkRetryable("agent timeout")
	assert.Equal(t, 5, job.RetryCount)
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Nil(t, job.NextRetryAt)
	assert.True(t, job.Exhausted())
	assert.False(t, job.Active())
}

func TestJob_MarkFatal(t *testing.T) {
	job, _ := NewJob(uuid.New(), uuid.New(), OperationOrderCreate, nil, 0, 0)
	require.NoError(t, job.Start())

	job.MarkFatal("vendor rejected payload")

	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, 1, job.RetryCount)
	assert.Equal(t, "vendor rejected payload", job.ErrorMessage)
	assert.Nil(t, job.NextRetryAt)
	assert.True(t, job.Exhausted())
}

func TestJobStatus_IsTerminal(t *testing.T) {
	assert.True(t, JobStatusCompleted.IsTerminal())
	assert.True(t, JobStatusFailed.IsTerminal())
	assert.False(t, JobStatusPending.IsTerminal())
	assert.False(t, JobStatusProcessing.IsTerminal())
}
