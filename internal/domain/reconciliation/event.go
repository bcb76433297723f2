package reconciliation

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/restosuite/backend/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// Reconciliation Events
// ---------------------------------------------------------------------------
// Every reconciliation run leaves an audit trail: what kind of check ran,
// what it found, and how long it took. The summary payload is schemaless
// JSON so run types can record different shapes.

// EventType classifies a reconciliation run
type EventType string

const (
	EventFullChecksum    EventType = "FULL_CHECKSUM"
	EventIncrementalSync EventType = "INCREMENTAL_SYNC"
	EventDriftDetected   EventType = "DRIFT_DETECTED"
	EventDriftResolved   EventType = "DRIFT_RESOLVED"
)

// Event records one reconciliation run for a vendor.
type Event struct {
	shared.BaseEntity
	VendorID   uuid.UUID
	Type       EventType
	Summary    json.RawMessage
	DurationMs int64
}

// NewEvent creates a reconciliation audit record
func NewEvent(vendorID uuid.UUID, eventType EventType, summary json.RawMessage, duration time.Duration) *Event {
	return &Event{
		BaseEntity: shared.NewBaseEntity(),
		VendorID:   vendorID,
		Type:       eventType,
		Summary:    summary,
		DurationMs: duration.Milliseconds(),
	}
}

// Filter defines list criteria for reconciliation events.
type Filter struct {
	VendorID *uuid.UUID
	Type     *EventType
	Page     int
	PageSize int
}

// Repository persists reconciliation events.
type Repository interface {
	Save(ctx context.Context, event *Event) error
	FindAll(ctx context.Context, filter Filter) ([]Event, int64, error)
	// FindOlderThan returns events past the cutoff, for archival
	FindOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]Event, error)
	// DeleteOlderThan purges archived events
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
