package sync

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/restosuite/backend/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// Sync Jobs
// ---------------------------------------------------------------------------
// A SyncJob is one ERP-bound operation (typically order delivery). The
// sync_jobs table doubles as the durable queue: rows carry their own retry
// state and a polling processor claims due rows atomically.

// JobStatus represents the lifecycle state of a sync job
type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

// IsTerminal returns true for completed and failed jobs
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Operation identifies the kind of ERP-bound work a job performs
type Operation string

const (
	OperationOrderCreate Operation = "ORDER_CREATE"
	OperationOrderCancel Operation = "ORDER_CANCEL"
)

// IsValid returns true if the operation is known
func (o Operation) IsValid() bool {
	switch o {
	case OperationOrderCreate, OperationOrderCancel:
		return true
	default:
		return false
	}
}

// Retry configuration. Backoff doubles from the base: 1m, 2m, 4m, 8m, 16m.
const (
	DefaultMaxRetries = 5
	BaseBackoff       = time.Minute
	DefaultJobTTL     = 24 * time.Hour
)

// ErrJobNotFound is returned when a job does not exist.
var ErrJobNotFound = shared.NewDomainError("JOB_NOT_FOUND", "Sync job not found")

// Job is one ERP-bound operation with durable retry state.
type Job struct {
	shared.BaseEntity
	VendorID     uuid.UUID
	OrderID      uuid.UUID
	Operation    Operation
	Payload      json.RawMessage
	Status       JobStatus
	RetryCount   int
	MaxRetries   int
	NextRetryAt  *time.Time
	ErpReference *string
	ErrorMessage string
	StartedAt    *time.Time
	CompletedAt  *time.Time
	ExpiresAt    time.Time
}

// NewJob creates a pending job. Non-positive maxRetries or ttl fall back to
// the defaults.
func NewJob(vendorID, orderID uuid.UUID, op Operation, payload json.RawMessage, maxRetries int, ttl time.Duration) (*Job, error) {
	if vendorID == uuid.Nil || orderID == uuid.Nil {
		return nil, errors.Join(shared.ErrInvalidInput, errors.New("vendor id and order id are required"))
	}
	if !op.IsValid() {
		return nil, errors.Join(shared.ErrInvalidInput, errors.New("unknown operation"))
	}
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	if ttl <= 0 {
		ttl = DefaultJobTTL
	}
	return &Job{
		BaseEntity: shared.NewBaseEntity(),
		VendorID:   vendorID,
		OrderID:    orderID,
		Operation:  op,
		Payload:    payload,
		Status:     JobStatusPending,
		MaxRetries: maxRetries,
		ExpiresAt:  time.Now().Add(ttl),
	}, nil
}

// Start marks the job as picked up by a worker
func (j *Job) Start() error {
	if j.Status != JobStatusPending {
		return errors.New("can only start pending jobs")
	}
	now := time.Now()
	j.Status = JobStatusProcessing
	j.StartedAt = &now
	j.Touch()
	return nil
}

// Complete marks the job as successfully delivered and records the ERP
// reference returned by the agent
func (j *Job) Complete(erpReference string) error {
	if j.Status != JobStatusProcessing {
		return errors.New("can only complete processing jobs")
	}
	now := time.Now()
	j.Status = JobStatusCompleted
	j.ErpReference = &erpReference
	j.CompletedAt = &now
	j.Touch()
	return nil
}

// MarkRetryable records a retryable failure. The attempt counter advances
// and the next attempt is scheduled with exponential backoff; once the retry
// budget is exhausted the job becomes terminally failed (Exhausted reports
// true and the caller escalates to the dead letter queue).
func (j *Job) MarkRetryable(errMsg string) {
	j.RetryCount++
	j.ErrorMessage = errMsg
	j.Touch()

	if j.RetryCount >= j.MaxRetries {
		now := time.Now()
		j.Status = JobStatusFailed
		j.CompletedAt = &now
		j.NextRetryAt = nil
		return
	}

	backoff := BaseBackoff * time.Duration(1<<uint(j.RetryCount-1))
	next := time.Now().Add(backoff)
	j.Status = JobStatusPending
	j.NextRetryAt = &next
}

// MarkFatal records a non-retryable failure (validation-class). The job goes
// terminal immediately regardless of remaining retry budget.
func (j *Job) MarkFatal(errMsg string) {
	now := time.Now()
	j.RetryCount++
	j.Status = JobStatusFailed
	j.ErrorMessage = errMsg
	j.CompletedAt = &now
	j.NextRetryAt = nil
	j.Touch()
}

// Exhausted reports whether the job failed with no retry budget left
func (j *Job) Exhausted() bool {
	return j.Status == JobStatusFailed
}

// Active reports whether the job is still pending or in flight
func (j *Job) Active() bool {
	return j.Status == JobStatusPending || j.Status == JobStatusProcessing
}

// ---------------------------------------------------------------------------
// Repository
// ---------------------------------------------------------------------------

// JobFilter defines list criteria for jobs.
type JobFilter struct {
	VendorID  *uuid.UUID
	Status    *JobStatus
	Operation *Operation
	Page      int
	PageSize  int
}

// JobRepository persists sync jobs and provides the queue semantics the
// processor relies on.
type JobRepository interface {
	// Save inserts a new job
	Save(ctx context.Context, job *Job) error
	// Update persists job state transitions
	Update(ctx context.Context, job *Job) error
	// FindByID finds a job by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Job, error)
	// FindActiveByOrder finds a pending/processing job for a source order.
	// Used by the idempotency check on job creation (lookup-before-insert;
	// the race window between lookup and insert is an accepted limitation).
	FindActiveByOrder(ctx context.Context, vendorID, orderID uuid.UUID) (*Job, error)
	// FindDue returns pending jobs whose next_retry_at is unset or past due
	FindDue(ctx context.Context, now time.Time, limit int) ([]*Job, error)
	// FindStalled returns processing jobs claimed before the cutoff. A crashed
	// worker or an agent that never calls back leaves the row in PROCESSING;
	// the processor reschedules these through the regular retry path
	FindStalled(ctx context.Context, cutoff time.Time, limit int) ([]*Job, error)
	// ClaimProcessing atomically flips pending rows to processing and
	// returns the claimed jobs; rows claimed by another worker are skipped
	ClaimProcessing(ctx context.Context, ids []uuid.UUID) ([]*Job, error)
	// FindAll lists jobs matching the filter
	FindAll(ctx context.Context, filter JobFilter) ([]Job, int64, error)
	// DeleteExpired purges jobs past their TTL regardless of terminal state
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	// CountByStatus returns job counts per status
	CountByStatus(ctx context.Context) (map[JobStatus]int64, error)
}
