package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/restosuite/backend/internal/domain/mapping"
	"github.com/restosuite/backend/internal/infrastructure/persistence/models"
)

// GormMappingRepository implements mapping.Repository using GORM
type GormMappingRepository struct {
	db *gorm.DB
}

// NewGormMappingRepository creates a new GormMappingRepository
func NewGormMappingRepository(db *gorm.DB) *GormMappingRepository {
	return &GormMappingRepository{db: db}
}

// Save creates or updates a mapping, upserting on the natural key
func (r *GormMappingRepository) Save(ctx context.Context, m *mapping.ErpCodeMapping) error {
	return r.db.WithContext(ctx).
		Clauses(mappingConflictClause()).
		Create(models.ErpCodeMappingModelFromDomain(m)).Error
}

// SaveBatch creates or updates mappings in one statement (bulk seed)
func (r *GormMappingRepository) SaveBatch(ctx context.Context, mappings []*mapping.ErpCodeMapping) error {
	if len(mappings) == 0 {
		return nil
	}

	mappingModels := make([]*models.ErpCodeMappingModel, len(mappings))
	for i, m := range mappings {
		mappingModels[i] = models.ErpCodeMappingModelFromDomain(m)
	}

	return r.db.WithContext(ctx).
		Clauses(mappingConflictClause()).
		Create(&mappingModels).Error
}

func mappingConflictClause() clause.OnConflict {
	return clause.OnConflict{
		Columns: []clause.Column{{Name: "vendor_id"}, {Name: "type"}, {Name: "erp_code"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"resto_code", "resto_label", "is_active", "updated_at",
		}),
	}
}

// FindByID finds a mapping by ID
func (r *GormMappingRepository) FindByID(ctx context.Context, id uuid.UUID) (*mapping.ErpCodeMapping, error) {
	var model models.ErpCodeMappingModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, mapping.ErrMappingNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindActive finds the unique active mapping for (vendor, type, erpCode)
func (r *GormMappingRepository) FindActive(ctx context.Context, vendorID uuid.UUID, mappingType mapping.Type, erpCode string) (*mapping.ErpCodeMapping, error) {
	var model models.ErpCodeMappingModel
	err := r.db.WithContext(ctx).
		Where("vendor_id = ? AND type = ? AND erp_code = ? AND is_active = ?",
			vendorID, string(mappingType), erpCode, true).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, mapping.ErrMappingNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByNaturalKey finds a mapping regardless of active flag
func (r *GormMappingRepository) FindByNaturalKey(ctx context.Context, vendorID uuid.UUID, mappingType mapping.Type, erpCode string) (*mapping.ErpCodeMapping, error) {
	var model models.ErpCodeMappingModel
	err := r.db.WithContext(ctx).
		Where("vendor_id = ? AND type = ? AND erp_code = ?",
			vendorID, string(mappingType), erpCode).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, mapping.ErrMappingNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists mappings for a vendor matching the filter
func (r *GormMappingRepository) FindAll(ctx context.Context, vendorID uuid.UUID, filter mapping.Filter) ([]mapping.ErpCodeMapping, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.ErpCodeMappingModel{}).
		Where("vendor_id = ?", vendorID)

	if filter.Type != nil {
		query = query.Where("type = ?", string(*filter.Type))
	}
	if filter.ErpCode != "" {
		query = query.Where("erp_code = ?", filter.ErpCode)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var mappingModels []models.ErpCodeMappingModel
	if err := query.Order("type ASC, erp_code ASC").Find(&mappingModels).Error; err != nil {
		return nil, 0, err
	}

	mappings := make([]mapping.ErpCodeMapping, len(mappingModels))
	for i := range mappingModels {
		mappings[i] = *mappingModels[i].ToDomain()
	}
	return mappings, total, nil
}

// Ensure GormMappingRepository implements mapping.Repository
var _ mapping.Repository = (*GormMappingRepository)(nil)
