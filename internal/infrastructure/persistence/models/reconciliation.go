package models

import (
	"github.com/google/uuid"

	"github.com/restosuite/backend/internal/domain/reconciliation"
)

// ReconciliationEventModel is the persistence model for reconciliation audit records.
type ReconciliationEventModel struct {
	BaseModel
	VendorID   uuid.UUID `gorm:"type:uuid;not null;index:idx_recon_vendor_created,priority:1"`
	Type       string    `gorm:"type:varchar(30);not null;index"`
	Summary    []byte    `gorm:"type:jsonb"`
	DurationMs int64     `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (ReconciliationEventModel) TableName() string {
	return "reconciliation_events"
}

// ToDomain converts the persistence model to a domain Event
func (m *ReconciliationEventModel) ToDomain() *reconciliation.Event {
	return &reconciliation.Event{
		BaseEntity: m.BaseModel.ToDomain(),
		VendorID:   m.VendorID,
		Type:       reconciliation.EventType(m.Type),
		Summary:    m.Summary,
		DurationMs: m.DurationMs,
	}
}

// ReconciliationEventModelFromDomain creates a persistence model from a domain Event
func ReconciliationEventModelFromDomain(e *reconciliation.Event) *ReconciliationEventModel {
	m := &ReconciliationEventModel{
		VendorID:   e.VendorID,
		Type:       string(e.Type),
		Summary:    e.Summary,
		DurationMs: e.DurationMs,
	}
	m.FromDomainBaseEntity(e.BaseEntity)
	return m
}
