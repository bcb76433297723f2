package persistence

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/restosuite/backend/internal/domain/reconciliation"
	"github.com/restosuite/backend/internal/infrastructure/persistence/models"
)

// GormReconciliationEventRepository implements reconciliation.Repository using GORM
type GormReconciliationEventRepository struct {
	db *gorm.DB
}

// NewGormReconciliationEventRepository creates a new GormReconciliationEventRepository
func NewGormReconciliationEventRepository(db *gorm.DB) *GormReconciliationEventRepository {
	return &GormReconciliationEventRepository{db: db}
}

// Save persists a reconciliation event
func (r *GormReconciliationEventRepository) Save(ctx context.Context, event *reconciliation.Event) error {
	return r.db.WithContext(ctx).Create(models.ReconciliationEventModelFromDomain(event)).Error
}

// FindAll lists events matching the filter
func (r *GormReconciliationEventRepository) FindAll(ctx context.Context, filter reconciliation.Filter) ([]reconciliation.Event, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ReconciliationEventModel{})

	if filter.VendorID != nil {
		query = query.Where("vendor_id = ?", *filter.VendorID)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", string(*filter.Type))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var eventModels []models.ReconciliationEventModel
	if err := query.Order("created_at DESC").Find(&eventModels).Error; err != nil {
		return nil, 0, err
	}

	events := make([]reconciliation.Event, len(eventModels))
	for i := range eventModels {
		events[i] = *eventModels[i].ToDomain()
	}
	return events, total, nil
}

// FindOlderThan returns events past the cutoff, oldest first, for archival
func (r *GormReconciliationEventRepository) FindOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]reconciliation.Event, error) {
	var eventModels []models.ReconciliationEventModel
	err := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Order("created_at ASC").
		Limit(limit).
		Find(&eventModels).Error
	if err != nil {
		return nil, err
	}

	events := make([]reconciliation.Event, len(eventModels))
	for i := range eventModels {
		events[i] = *eventModels[i].ToDomain()
	}
	return events, nil
}

// DeleteOlderThan purges events past the cutoff
func (r *GormReconciliationEventRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.ReconciliationEventModel{})
	return result.RowsAffected, result.Error
}

// Ensure GormReconciliationEventRepository implements reconciliation.Repository
var _ reconciliation.Repository = (*GormReconciliationEventRepository)(nil)
