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

// GormWarehouseRepository implements catalog.WarehouseRepository using GORM
type GormWarehouseRepository struct {
	db *gorm.DB
}

// NewGormWarehouseRepository creates a new GormWarehouseRepository
func NewGormWarehouseRepository(db *gorm.DB) *GormWarehouseRepository {
	return &GormWarehouseRepository{db: db}
}

// UpsertBatch inserts or updates warehouses keyed on (vendor_id, erp_warehouse_id)
func (r *GormWarehouseRepository) UpsertBatch(ctx context.Context, warehouses []*catalog.SyncedWarehouse) error {
	if len(warehouses) == 0 {
		return nil
	}

	whModels := make([]*models.SyncedWarehouseModel, len(warehouses))
	for i, wh := range warehouses {
		whModels[i] = models.SyncedWarehouseModelFromDomain(wh)
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "vendor_id"}, {Name: "erp_warehouse_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "address", "is_active", "content_hash", "last_synced_at", "updated_at",
			}),
		}).
		Create(&whModels).Error
}

// FindMetaByIDs returns stored meta keyed by erp warehouse ID
func (r *GormWarehouseRepository) FindMetaByIDs(ctx context.Context, vendorID uuid.UUID, erpWarehouseIDs []string) (map[string]catalog.StoredMeta, error) {
	if len(erpWarehouseIDs) == 0 {
		return map[string]catalog.StoredMeta{}, nil
	}

	var metas []struct {
		ErpWarehouseID string
		ContentHash    string
		LastSyncedAt   time.Time
	}
	err := r.db.WithContext(ctx).
		Model(&models.SyncedWarehouseModel{}).
		Select("erp_warehouse_id, content_hash, last_synced_at").
		Where("vendor_id = ? AND erp_warehouse_id IN ?", vendorID, erpWarehouseIDs).
		Scan(&metas).Error
	if err != nil {
		return nil, err
	}

	out := make(map[string]catalog.StoredMeta, len(metas))
	for _, m := range metas {
		out[m.ErpWarehouseID] = catalog.StoredMeta{ContentHash: m.ContentHash, LastSyncedAt: m.LastSyncedAt}
	}
	return out, nil
}

// Ensure GormWarehouseRepository implements catalog.WarehouseRepository
var _ catalog.WarehouseRepository = (*GormWarehouseRepository)(nil)
