package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/restosuite/backend/internal/domain/catalog"
	"github.com/restosuite/backend/internal/infrastructure/persistence/models"
)

// GormStockRepository implements catalog.StockRepository using GORM
type GormStockRepository struct {
	db *gorm.DB
}

// NewGormStockRepository creates a new GormStockRepository
func NewGormStockRepository(db *gorm.DB) *GormStockRepository {
	return &GormStockRepository{db: db}
}

// UpsertBatch inserts or updates stock rows keyed on (vendor_id, erp_warehouse_id, sku)
func (r *GormStockRepository) UpsertBatch(ctx context.Context, stocks []*catalog.SyncedStock) error {
	if len(stocks) == 0 {
		return nil
	}

	stockModels := make([]*models.SyncedStockModel, len(stocks))
	for i, s := range stocks {
		stockModels[i] = models.SyncedStockModelFromDomain(s)
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "vendor_id"}, {Name: "erp_warehouse_id"}, {Name: "sku"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"quantity", "content_hash", "last_synced_at", "updated_at",
			}),
		}).
		Create(&stockModels).Error
}

// FindMetaByKeys returns stored meta keyed by "warehouseID/sku"
func (r *GormStockRepository) FindMetaByKeys(ctx context.Context, vendorID uuid.UUID, keys []catalog.StockKey) (map[string]catalog.StoredMeta, error) {
	if len(keys) == 0 {
		return map[string]catalog.StoredMeta{}, nil
	}

	// Composite IN over the natural key pairs
	pairs := make([][]any, len(keys))
	for i, k := range keys {
		pairs[i] = []any{k.ErpWarehouseID, k.SKU}
	}

	var metas []struct {
		ErpWarehouseID string
		SKU            string
		ContentHash    string
		LastSyncedAt   time.Time
	}
	err := r.db.WithContext(ctx).
		Model(&models.SyncedStockModel{}).
		Select("erp_warehouse_id, sku, content_hash, last_synced_at").
		Where("vendor_id = ? AND (erp_warehouse_id, sku) IN ?", vendorID, pairs).
		Scan(&metas).Error
	if err != nil {
		return nil, err
	}

	out := make(map[string]catalog.StoredMeta, len(metas))
	for _, m := range metas {
		key := catalog.StockKey{ErpWarehouseID: m.ErpWarehouseID, SKU: m.SKU}
		out[key.String()] = catalog.StoredMeta{ContentHash: m.ContentHash, LastSyncedAt: m.LastSyncedAt}
	}
	return out, nil
}

// Ensure GormStockRepository implements catalog.StockRepository
var _ catalog.StockRepository = (*GormStockRepository)(nil)
