package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/restosuite/backend/internal/domain/catalog"
	"github.com/restosuite/backend/internal/domain/shared"
	"github.com/restosuite/backend/internal/infrastructure/persistence/models"
)

// GormItemRepository implements catalog.ItemRepository using GORM
type GormItemRepository struct {
	db *gorm.DB
}

// NewGormItemRepository creates a new GormItemRepository
func NewGormItemRepository(db *gorm.DB) *GormItemRepository {
	return &GormItemRepository{db: db}
}

// UpsertBatch inserts or updates items in a single statement keyed on (vendor_id, sku)
func (r *GormItemRepository) UpsertBatch(ctx context.Context, items []*catalog.SyncedItem) error {
	if len(items) == 0 {
		return nil
	}

	itemModels := make([]*models.SyncedItemModel, len(items))
	for i, item := range items {
		itemModels[i] = models.SyncedItemModelFromDomain(item)
	}

	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "vendor_id"}, {Name: "sku"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name",
				"erp_unit_code", "erp_vat_code", "erp_family_code", "erp_subfamily_code",
				"unit_code", "vat_code", "family_code", "subfamily_code",
				"price", "is_active", "content_hash", "last_synced_at", "updated_at",
			}),
		}).
		Create(&itemModels).Error
}

// FindBySKU finds an item by its natural key
func (r *GormItemRepository) FindBySKU(ctx context.Context, vendorID uuid.UUID, sku string) (*catalog.SyncedItem, error) {
	var model models.SyncedItemModel
	err := r.db.WithContext(ctx).
		Where("vendor_id = ? AND sku = ?", vendorID, sku).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindMetaBySKUs returns stored (hash, lastSyncedAt) per SKU for the dedup gate
func (r *GormItemRepository) FindMetaBySKUs(ctx context.Context, vendorID uuid.UUID, skus []string) (map[string]catalog.StoredMeta, error) {
	if len(skus) == 0 {
		return map[string]catalog.StoredMeta{}, nil
	}

	var metas []struct {
		SKU          string
		ContentHash  string
		LastSyncedAt time.Time
	}
	err := r.db.WithContext(ctx).
		Model(&models.SyncedItemModel{}).
		Select("sku, content_hash, last_synced_at").
		Where("vendor_id = ? AND sku IN ?", vendorID, skus).
		Scan(&metas).Error
	if err != nil {
		return nil, err
	}

	out := make(map[string]catalog.StoredMeta, len(metas))
	for _, m := range metas {
		out[m.SKU] = catalog.StoredMeta{ContentHash: m.ContentHash, LastSyncedAt: m.LastSyncedAt}
	}
	return out, nil
}

// ListKeyHashes returns ordered (sku, contentHash) pairs within a key range
func (r *GormItemRepository) ListKeyHashes(ctx context.Context, vendorID uuid.UUID, rng catalog.KeyRange) ([]catalog.KeyHash, error) {
	var rows []struct {
		SKU         string
		ContentHash string
	}
	query := applyKeyRange(
		r.db.WithContext(ctx).
			Model(&models.SyncedItemModel{}).
			Select("sku, content_hash").
			Where("vendor_id = ? AND is_active = ?", vendorID, true),
		"sku", rng)

	if err := query.Order("sku ASC").Scan(&rows).Error; err != nil {
		return nil, err
	}

	hashes := make([]catalog.KeyHash, len(rows))
	for i, row := range rows {
		hashes[i] = catalog.KeyHash{Key: row.SKU, ContentHash: row.ContentHash}
	}
	return hashes, nil
}

// ListRange returns full items within a key range, ordered by SKU
func (r *GormItemRepository) ListRange(ctx context.Context, vendorID uuid.UUID, rng catalog.KeyRange) ([]catalog.SyncedItem, error) {
	var itemModels []models.SyncedItemModel
	query := applyKeyRange(
		r.db.WithContext(ctx).Where("vendor_id = ? AND is_active = ?", vendorID, true),
		"sku", rng)

	if err := query.Order("sku ASC").Find(&itemModels).Error; err != nil {
		return nil, err
	}

	items := make([]catalog.SyncedItem, len(itemModels))
	for i := range itemModels {
		items[i] = *itemModels[i].ToDomain()
	}
	return items, nil
}

// CountRange counts items within a key range
func (r *GormItemRepository) CountRange(ctx context.Context, vendorID uuid.UUID, rng catalog.KeyRange) (int64, error) {
	var count int64
	query := applyKeyRange(
		r.db.WithContext(ctx).
			Model(&models.SyncedItemModel{}).
			Where("vendor_id = ?", vendorID),
		"sku", rng)
	err := query.Count(&count).Error
	return count, err
}

// applyKeyRange narrows a query to a lexicographic key range on column
func applyKeyRange(query *gorm.DB, column string, rng catalog.KeyRange) *gorm.DB {
	if rng.From != "" {
		query = query.Where(column+" >= ?", rng.From)
	}
	if rng.To != "" {
		query = query.Where(column+" <= ?", rng.To)
	}
	return query
}

// Ensure GormItemRepository implements catalog.ItemRepository
var _ catalog.ItemRepository = (*GormItemRepository)(nil)
