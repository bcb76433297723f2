package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/restosuite/backend/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// Synced Entities
// ---------------------------------------------------------------------------
// Synced entities are the local copies of ERP-owned records. They are only
// written through the ingest pipeline (agent pushes) and the reconciliation
// engine (ERP-wins conflict resolution); they are never deleted by sync
// flows, only flagged inactive.

// SyncedItem is a vendor catalog item mirrored from the vendor's ERP.
// Natural key: (VendorID, SKU).
type SyncedItem struct {
	shared.BaseEntity
	VendorID uuid.UUID
	SKU      string
	Name     string

	// Vendor-side ERP codes as received from the agent
	ErpUnitCode      string
	ErpVatCode       string
	ErpFamilyCode    string
	ErpSubfamilyCode string

	// Canonical codes resolved through the mapping table
	UnitCode      string
	VatCode       string
	FamilyCode    *string
	SubfamilyCode *string

	Price        decimal.Decimal
	IsActive     bool
	ContentHash  string
	LastSyncedAt time.Time
}

// SyncedStock is a per-warehouse stock level mirrored from the vendor's ERP.
// Natural key: (VendorID, ErpWarehouseID, SKU).
type SyncedStock struct {
	shared.BaseEntity
	VendorID       uuid.UUID
	ErpWarehouseID string
	SKU            string
	Quantity       decimal.Decimal
	ContentHash    string
	LastSyncedAt   time.Time
}

// SyncedWarehouse is a vendor warehouse mirrored from the vendor's ERP.
// Natural key: (VendorID, ErpWarehouseID).
type SyncedWarehouse struct {
	shared.BaseEntity
	VendorID       uuid.UUID
	ErpWarehouseID string
	Name           string
	Address        string
	IsActive       bool
	ContentHash    string
	LastSyncedAt   time.Time
}

// ---------------------------------------------------------------------------
// Key Ranges
// ---------------------------------------------------------------------------

// KeyRange is a half-bounded range over natural keys (lexicographic order).
// An empty From means "from the beginning"; an empty To means "to the end".
type KeyRange struct {
	From string
	To   string
}

// FullRange returns the range covering every key.
func FullRange() KeyRange {
	return KeyRange{}
}

// Contains reports whether key falls inside the range.
func (r KeyRange) Contains(key string) bool {
	if r.From != "" && key < r.From {
		return false
	}
	if r.To != "" && key > r.To {
		return false
	}
	return true
}

// ---------------------------------------------------------------------------
// Repositories
// ---------------------------------------------------------------------------

// ItemRepository persists synced items.
type ItemRepository interface {
	// UpsertBatch inserts or updates items in a single statement keyed on
	// (vendor_id, sku)
	UpsertBatch(ctx context.Context, items []*SyncedItem) error
	// FindBySKU finds an item by its natural key
	FindBySKU(ctx context.Context, vendorID uuid.UUID, sku string) (*SyncedItem, error)
	// FindMetaBySKUs returns stored (hash, lastSyncedAt) per SKU for dedup
	FindMetaBySKUs(ctx context.Context, vendorID uuid.UUID, skus []string) (map[string]StoredMeta, error)
	// ListKeyHashes returns ordered (sku, contentHash) pairs for active items
	// within a range. Inactive items are invisible to range checksums so both
	// sides converge after a deactivation.
	ListKeyHashes(ctx context.Context, vendorID uuid.UUID, rng KeyRange) ([]KeyHash, error)
	// ListRange returns full active items within a range, ordered by SKU
	ListRange(ctx context.Context, vendorID uuid.UUID, rng KeyRange) ([]SyncedItem, error)
	// CountRange counts items within a range
	CountRange(ctx context.Context, vendorID uuid.UUID, rng KeyRange) (int64, error)
}

// StockRepository persists synced stock levels.
type StockRepository interface {
	// UpsertBatch inserts or updates stock rows keyed on
	// (vendor_id, erp_warehouse_id, sku)
	UpsertBatch(ctx context.Context, stocks []*SyncedStock) error
	// FindMetaByKeys returns stored meta keyed by "warehouseID/sku"
	FindMetaByKeys(ctx context.Context, vendorID uuid.UUID, keys []StockKey) (map[string]StoredMeta, error)
}

// StockKey is the natural key of a stock row.
type StockKey struct {
	ErpWarehouseID string
	SKU            string
}

// String renders the key in its canonical map-key form.
func (k StockKey) String() string {
	return k.ErpWarehouseID + "/" + k.SKU
}

// WarehouseRepository persists synced warehouses.
type WarehouseRepository interface {
	// UpsertBatch inserts or updates warehouses keyed on
	// (vendor_id, erp_warehouse_id)
	UpsertBatch(ctx context.Context, warehouses []*SyncedWarehouse) error
	// FindMetaByIDs returns stored meta keyed by erp warehouse ID
	FindMetaByIDs(ctx context.Context, vendorID uuid.UUID, erpWarehouseIDs []string) (map[string]StoredMeta, error)
}
