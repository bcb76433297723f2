package syncjob

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/restosuite/backend/internal/domain/sync"
)

// SubmitOrderRequest creates an order and enqueues its ERP delivery job.
type SubmitOrderRequest struct {
	OrderNumber string          `json:"order_number" binding:"required,max=100"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Payload     json.RawMessage `json:"payload" binding:"required"`
}

// CreateJobRequest enqueues an ERP-bound job for an existing order.
type CreateJobRequest struct {
	OrderID   uuid.UUID       `json:"order_id" binding:"required"`
	Operation string          `json:"operation" binding:"required,oneof=ORDER_CREATE ORDER_CANCEL"`
	Payload   json.RawMessage `json:"payload" binding:"required"`
}

// CallbackRequest is the agent's report of a job's terminal outcome.
type CallbackRequest struct {
	JobID        uuid.UUID `json:"job_id" binding:"required"`
	Success      bool      `json:"success"`
	ErpReference string    `json:"erp_reference"`
	ErrorMessage string    `json:"error_message"`
	Retryable    bool      `json:"retryable"`
}

// ResolveRequest closes a dead letter entry without further action.
type ResolveRequest struct {
	Resolution string `json:"resolution" binding:"required,max=1000"`
}

// JobResponse represents a sync job in API responses.
type JobResponse struct {
	ID           uuid.UUID  `json:"id"`
	VendorID     uuid.UUID  `json:"vendor_id"`
	OrderID      uuid.UUID  `json:"order_id"`
	Operation    string     `json:"operation"`
	Status       string     `json:"status"`
	RetryCount   int        `json:"retry_count"`
	MaxRetries   int        `json:"max_retries"`
	NextRetryAt  *time.Time `json:"next_retry_at,omitempty"`
	ErpReference *string    `json:"erp_reference,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	ExpiresAt    time.Time  `json:"expires_at"`
	CreatedAt    time.Time  `json:"created_at"`
}

// OrderResponse represents an order in API responses.
type OrderResponse struct {
	ID           uuid.UUID  `json:"id"`
	VendorID     uuid.UUID  `json:"vendor_id"`
	OrderNumber  string     `json:"order_number"`
	Status       string     `json:"status"`
	ErpReference *string    `json:"erp_reference,omitempty"`
	SyncedAt     *time.Time `json:"synced_at,omitempty"`
	JobID        uuid.UUID  `json:"job_id"`
}

// DeadLetterResponse represents a DLQ entry in API responses.
type DeadLetterResponse struct {
	ID           uuid.UUID `json:"id"`
	JobID        uuid.UUID `json:"job_id"`
	VendorID     uuid.UUID `json:"vendor_id"`
	OrderID      uuid.UUID `json:"order_id"`
	Operation    string    `json:"operation"`
	ErrorMessage string    `json:"error_message"`
	RetryCount   int       `json:"retry_count"`
	Status       string    `json:"status"`
	ResolvedBy   string    `json:"resolved_by,omitempty"`
	Resolution   string    `json:"resolution,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// JobListFilter represents filter options for job lists.
type JobListFilter struct {
	VendorID  *uuid.UUID `form:"vendor_id"`
	Status    string     `form:"status" binding:"omitempty,oneof=PENDING PROCESSING COMPLETED FAILED"`
	Operation string     `form:"operation" binding:"omitempty,oneof=ORDER_CREATE ORDER_CANCEL"`
	Page      int        `form:"page" binding:"omitempty,min=1"`
	PageSize  int        `form:"page_size" binding:"omitempty,min=1,max=200"`
}

// DeadLetterListFilter represents filter options for DLQ lists.
type DeadLetterListFilter struct {
	VendorID *uuid.UUID `form:"vendor_id"`
	Status   string     `form:"status" binding:"omitempty,oneof=PENDING RETRIED RESOLVED"`
	Page     int        `form:"page" binding:"omitempty,min=1"`
	PageSize int        `form:"page_size" binding:"omitempty,min=1,max=200"`
}

func toJobResponse(j *sync.Job) JobResponse {
	return JobResponse{
		ID:           j.ID,
		VendorID:     j.VendorID,
		OrderID:      j.OrderID,
		Operation:    string(j.Operation),
		Status:       string(j.Status),
		RetryCount:   j.RetryCount,
		MaxRetries:   j.MaxRetries,
		NextRetryAt:  j.NextRetryAt,
		ErpReference: j.ErpReference,
		ErrorMessage: j.ErrorMessage,
		StartedAt:    j.StartedAt,
		CompletedAt:  j.CompletedAt,
		ExpiresAt:    j.ExpiresAt,
		CreatedAt:    j.CreatedAt,
	}
}

func toDeadLetterResponse(e *sync.DeadLetterEntry) DeadLetterResponse {
	return DeadLetterResponse{
		ID:           e.ID,
		JobID:        e.JobID,
		VendorID:     e.VendorID,
		OrderID:      e.OrderID,
		Operation:    string(e.Operation),
		ErrorMessage: e.ErrorMessage,
		RetryCount:   e.RetryCount,
		Status:       string(e.Status),
		ResolvedBy:   e.ResolvedBy,
		Resolution:   e.Resolution,
		CreatedAt:    e.CreatedAt,
	}
}
