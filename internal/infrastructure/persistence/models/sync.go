package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	syncdomain "github.com/restosuite/backend/internal/domain/sync"
)

// SyncJobModel is the persistence model for ERP-bound sync jobs. The table
// doubles as the durable work queue, so retry bookkeeping lives on the row.
type SyncJobModel struct {
	BaseModel
	VendorID     uuid.UUID  `gorm:"type:uuid;not null;index:idx_jobs_vendor_order,priority:1"`
	OrderID      uuid.UUID  `gorm:"type:uuid;not null;index:idx_jobs_vendor_order,priority:2"`
	Operation    string     `gorm:"type:varchar(30);not null"`
	Payload      []byte     `gorm:"type:jsonb"`
	Status       string     `gorm:"type:varchar(20);not null;default:PENDING;index:idx_jobs_status_retry,priority:1"`
	RetryCount   int        `gorm:"default:0"`
	MaxRetries   int        `gorm:"default:5"`
	NextRetryAt  *time.Time `gorm:"index:idx_jobs_status_retry,priority:2"`
	ErpReference *string    `gorm:"type:varchar(100)"`
	ErrorMessage string     `gorm:"type:text"`
	StartedAt    *time.Time
	CompletedAt  *time.Time
	ExpiresAt    time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (SyncJobModel) TableName() string {
	return "sync_jobs"
}

// ToDomain converts the persistence model to a domain Job
func (m *SyncJobModel) ToDomain() *syncdomain.Job {
	return &syncdomain.Job{
		BaseEntity:   m.BaseModel.ToDomain(),
		VendorID:     m.VendorID,
		OrderID:      m.OrderID,
		Operation:    syncdomain.Operation(m.Operation),
		Payload:      m.Payload,
		Status:       syncdomain.JobStatus(m.Status),
		RetryCount:   m.RetryCount,
		MaxRetries:   m.MaxRetries,
		NextRetryAt:  m.NextRetryAt,
		ErpReference: m.ErpReference,
		ErrorMessage: m.ErrorMessage,
		StartedAt:    m.StartedAt,
		CompletedAt:  m.CompletedAt,
		ExpiresAt:    m.ExpiresAt,
	}
}

// SyncJobModelFromDomain creates a persistence model from a domain Job
func SyncJobModelFromDomain(j *syncdomain.Job) *SyncJobModel {
	m := &SyncJobModel{
		VendorID:     j.VendorID,
		OrderID:      j.OrderID,
		Operation:    string(j.Operation),
		Payload:      j.Payload,
		Status:       string(j.Status),
		RetryCount:   j.RetryCount,
		MaxRetries:   j.MaxRetries,
		NextRetryAt:  j.NextRetryAt,
		ErpReference: j.ErpReference,
		ErrorMessage: j.ErrorMessage,
		StartedAt:    j.StartedAt,
		CompletedAt:  j.CompletedAt,
		ExpiresAt:    j.ExpiresAt,
	}
	m.FromDomainBaseEntity(j.BaseEntity)
	return m
}

// DeadLetterModel is the persistence model for permanently failed jobs.
type DeadLetterModel struct {
	BaseModel
	JobID        uuid.UUID  `gorm:"type:uuid;not null;index"`
	VendorID     uuid.UUID  `gorm:"type:uuid;not null;index"`
	OrderID      uuid.UUID  `gorm:"type:uuid;not null"`
	Operation    string     `gorm:"type:varchar(30);not null"`
	Payload      []byte     `gorm:"type:jsonb"`
	ErrorMessage string     `gorm:"type:text"`
	RetryCount   int        `gorm:"default:0"`
	Status       string     `gorm:"type:varchar(20);not null;default:PENDING;index"`
	ResolvedAt   *time.Time `gorm:"index"`
	ResolvedBy   string     `gorm:"type:varchar(255)"`
	Resolution   string     `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (DeadLetterModel) TableName() string {
	return "dead_letter_entries"
}

// ToDomain converts the persistence model to a domain DeadLetterEntry
func (m *DeadLetterModel) ToDomain() *syncdomain.DeadLetterEntry {
	return &syncdomain.DeadLetterEntry{
		BaseEntity:   m.BaseModel.ToDomain(),
		JobID:        m.JobID,
		VendorID:     m.VendorID,
		OrderID:      m.OrderID,
		Operation:    syncdomain.Operation(m.Operation),
		Payload:      m.Payload,
		ErrorMessage: m.ErrorMessage,
		RetryCount:   m.RetryCount,
		Status:       syncdomain.DeadLetterStatus(m.Status),
		ResolvedAt:   m.ResolvedAt,
		ResolvedBy:   m.ResolvedBy,
		Resolution:   m.Resolution,
	}
}

// DeadLetterModelFromDomain creates a persistence model from a domain DeadLetterEntry
func DeadLetterModelFromDomain(e *syncdomain.DeadLetterEntry) *DeadLetterModel {
	m := &DeadLetterModel{
		JobID:        e.JobID,
		VendorID:     e.VendorID,
		OrderID:      e.OrderID,
		Operation:    string(e.Operation),
		Payload:      e.Payload,
		ErrorMessage: e.ErrorMessage,
		RetryCount:   e.RetryCount,
		Status:       string(e.Status),
		ResolvedAt:   e.ResolvedAt,
		ResolvedBy:   e.ResolvedBy,
		Resolution:   e.Resolution,
	}
	m.FromDomainBaseEntity(e.BaseEntity)
	return m
}

// OrderModel is the persistence model for B2B orders awaiting ERP delivery.
type OrderModel struct {
	BaseModel
	VendorID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_orders_vendor_number,priority:1"`
	OrderNumber  string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_orders_vendor_number,priority:2"`
	TotalAmount  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Payload      []byte          `gorm:"type:jsonb;not null"`
	Status       string          `gorm:"type:varchar(20);not null;default:SUBMITTED;index"`
	ErpReference *string         `gorm:"type:varchar(100)"`
	SyncedAt     *time.Time
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order
func (m *OrderModel) ToDomain() *syncdomain.Order {
	return &syncdomain.Order{
		BaseEntity:   m.BaseModel.ToDomain(),
		VendorID:     m.VendorID,
		OrderNumber:  m.OrderNumber,
		TotalAmount:  m.TotalAmount,
		Payload:      m.Payload,
		Status:       syncdomain.OrderStatus(m.Status),
		ErpReference: m.ErpReference,
		SyncedAt:     m.SyncedAt,
	}
}

// OrderModelFromDomain creates a persistence model from a domain Order
func OrderModelFromDomain(o *syncdomain.Order) *OrderModel {
	m := &OrderModel{
		VendorID:     o.VendorID,
		OrderNumber:  o.OrderNumber,
		TotalAmount:  o.TotalAmount,
		Payload:      o.Payload,
		Status:       string(o.Status),
		ErpReference: o.ErpReference,
		SyncedAt:     o.SyncedAt,
	}
	m.FromDomainBaseEntity(o.BaseEntity)
	return m
}
