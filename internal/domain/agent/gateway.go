package agent

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/restosuite/backend/internal/domain/catalog"
)

// ---------------------------------------------------------------------------
// Outbound Gateway
// ---------------------------------------------------------------------------
// Gateway is the port to vendor-deployed agent processes. Implementations
// authenticate with the agent's bearer token, propagate a correlation ID and
// enforce the client-side timeout; callers see transport failures as plain
// errors and decide retry policy themselves.

// APIType distinguishes the agent API surfaces for circuit breaking. A
// failing orders API must not short-circuit item reconciliation traffic.
type APIType string

const (
	APITypeOrders    APIType = "orders"
	APITypeItems     APIType = "items"
	APITypeChecksums APIType = "checksums"
)

// OrderPush is an ERP-bound order delivery request.
type OrderPush struct {
	JobID         uuid.UUID       `json:"jobId"`
	OrderID       uuid.UUID       `json:"orderId"`
	Payload       json.RawMessage `json:"payload"`
	CorrelationID string          `json:"-"`
}

// OrderPushResult is the agent's synchronous acknowledgement. The terminal
// outcome arrives later through the callback endpoint.
type OrderPushResult struct {
	Accepted bool   `json:"accepted"`
	Message  string `json:"message"`
}

// ChecksumResult is the agent-side checksum of a key range.
type ChecksumResult struct {
	Checksum string `json:"checksum"`
	Count    int    `json:"count"`
}

// ErpItem is an item snapshot as seen by the vendor's ERP, fetched during
// reconciliation diffs.
type ErpItem struct {
	SKU              string          `json:"sku"`
	Name             string          `json:"name"`
	ErpUnitCode      string          `json:"erpUnitCode"`
	ErpVatCode       string          `json:"erpVatCode"`
	ErpFamilyCode    string          `json:"erpFamilyCode,omitempty"`
	ErpSubfamilyCode string          `json:"erpSubfamilyCode,omitempty"`
	Price            decimal.Decimal `json:"price"`
	ContentHash      string          `json:"contentHash"`
	LastSyncedAt     time.Time       `json:"lastSyncedAt"`
}

// Gateway talks to a single vendor's agent.
type Gateway interface {
	// PushOrder delivers an order to the ERP through the agent
	PushOrder(ctx context.Context, reg *Registration, push OrderPush) (*OrderPushResult, error)
	// Checksum asks the agent for the ERP-side checksum of a key range
	Checksum(ctx context.Context, reg *Registration, rng catalog.KeyRange) (*ChecksumResult, error)
	// FetchItems fetches ERP-side item data for a (small) key range
	FetchItems(ctx context.Context, reg *Registration, rng catalog.KeyRange) ([]ErpItem, error)
}
