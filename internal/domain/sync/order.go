package sync

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/restosuite/backend/internal/domain/shared"
)

// OrderStatus tracks how far an order has travelled toward the ERP
type OrderStatus string

const (
	OrderStatusSubmitted OrderStatus = "SUBMITTED"
	OrderStatusSynced    OrderStatus = "SYNCED"
	OrderStatusSyncError OrderStatus = "SYNC_ERROR"
)

// ErrOrderNotFound is returned when an order does not exist.
var ErrOrderNotFound = shared.NewDomainError("ORDER_NOT_FOUND", "Order not found")

// Order is the local record of a B2B order destined for the vendor's ERP.
// The payload is kept opaque; the pipeline delivers it verbatim to the agent.
type Order struct {
	shared.BaseEntity
	VendorID     uuid.UUID
	OrderNumber  string
	TotalAmount  decimal.Decimal
	Payload      json.RawMessage
	Status       OrderStatus
	ErpReference *string
	SyncedAt     *time.Time
}

// NewOrder creates a submitted order awaiting ERP delivery
func NewOrder(vendorID uuid.UUID, orderNumber string, totalAmount decimal.Decimal, payload json.RawMessage) (*Order, error) {
	if vendorID == uuid.Nil {
		return nil, errors.Join(shared.ErrInvalidInput, errors.New("vendor id is required"))
	}
	if orderNumber == "" {
		return nil, errors.Join(shared.ErrInvalidInput, errors.New("order number is required"))
	}
	if len(payload) == 0 {
		return nil, errors.Join(shared.ErrInvalidInput, errors.New("payload is required"))
	}
	return &Order{
		BaseEntity:  shared.NewBaseEntity(),
		VendorID:    vendorID,
		OrderNumber: orderNumber,
		TotalAmount: totalAmount,
		Payload:     payload,
		Status:      OrderStatusSubmitted,
	}, nil
}

// MarkSynced records a successful ERP delivery
func (o *Order) MarkSynced(erpReference string) {
	now := time.Now()
	o.Status = OrderStatusSynced
	o.ErpReference = &erpReference
	o.SyncedAt = &now
	o.Touch()
}

// MarkSyncError records a terminally failed delivery
func (o *Order) MarkSyncError() {
	o.Status = OrderStatusSyncError
	o.Touch()
}

// OrderRepository persists orders.
type OrderRepository interface {
	Save(ctx context.Context, order *Order) error
	Update(ctx context.Context, order *Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindByNumber(ctx context.Context, vendorID uuid.UUID, orderNumber string) (*Order, error)
}
