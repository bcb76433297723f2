package sync

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/restosuite/backend/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// Dead Letter Queue
// ---------------------------------------------------------------------------
// Jobs that exhaust their retry budget are parked here for operator review.
// Entries keep the full original payload so a retry can re-enqueue the work
// without touching the source order.

// DeadLetterStatus represents the review state of a dead letter entry
type DeadLetterStatus string

const (
	DeadLetterStatusPending  DeadLetterStatus = "PENDING"
	DeadLetterStatusRetried  DeadLetterStatus = "RETRIED"
	DeadLetterStatusResolved DeadLetterStatus = "RESOLVED"
)

// ErrDeadLetterNotFound is returned when a dead letter entry does not exist.
var ErrDeadLetterNotFound = shared.NewDomainError("DEAD_LETTER_NOT_FOUND", "Dead letter entry not found")

// ErrDeadLetterClosed is returned when acting on an already handled entry.
var ErrDeadLetterClosed = shared.NewDomainError("DEAD_LETTER_CLOSED", "Dead letter entry already handled")

// DeadLetterEntry records a permanently failed job awaiting operator action.
type DeadLetterEntry struct {
	shared.BaseEntity
	JobID        uuid.UUID
	VendorID     uuid.UUID
	OrderID      uuid.UUID
	Operation    Operation
	Payload      json.RawMessage
	ErrorMessage string
	RetryCount   int
	Status       DeadLetterStatus
	ResolvedAt   *time.Time
	ResolvedBy   string
	Resolution   string
}

// NewDeadLetterEntry parks an exhausted job for operator review
func NewDeadLetterEntry(job *Job) *DeadLetterEntry {
	return &DeadLetterEntry{
		BaseEntity:   shared.NewBaseEntity(),
		JobID:        job.ID,
		VendorID:     job.VendorID,
		OrderID:      job.OrderID,
		Operation:    job.Operation,
		Payload:      job.Payload,
		ErrorMessage: job.ErrorMessage,
		RetryCount:   job.RetryCount,
		Status:       DeadLetterStatusPending,
	}
}

// MarkRetried closes the entry after a fresh job was enqueued from it
func (e *DeadLetterEntry) MarkRetried(operator string) error {
	if e.Status != DeadLetterStatusPending {
		return ErrDeadLetterClosed
	}
	now := time.Now()
	e.Status = DeadLetterStatusRetried
	e.ResolvedAt = &now
	e.ResolvedBy = operator
	e.Touch()
	return nil
}

// MarkResolved closes the entry without retrying, with an operator note
func (e *DeadLetterEntry) MarkResolved(operator, resolution string) error {
	if e.Status != DeadLetterStatusPending {
		return ErrDeadLetterClosed
	}
	now := time.Now()
	e.Status = DeadLetterStatusResolved
	e.ResolvedAt = &now
	e.ResolvedBy = operator
	e.Resolution = resolution
	e.Touch()
	return nil
}

// DeadLetterFilter defines list criteria for dead letter entries.
type DeadLetterFilter struct {
	VendorID *uuid.UUID
	Status   *DeadLetterStatus
	Page     int
	PageSize int
}

// DeadLetterRepository persists dead letter entries.
type DeadLetterRepository interface {
	Save(ctx context.Context, entry *DeadLetterEntry) error
	Update(ctx context.Context, entry *DeadLetterEntry) error
	FindByID(ctx context.Context, id uuid.UUID) (*DeadLetterEntry, error)
	FindAll(ctx context.Context, filter DeadLetterFilter) ([]DeadLetterEntry, int64, error)
	// CountPending counts unreviewed entries, for the alert sweep
	CountPending(ctx context.Context) (int64, error)
	// DeleteResolvedBefore purges handled entries older than the cutoff
	DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
