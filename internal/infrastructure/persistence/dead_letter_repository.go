package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	syncdomain "github.com/restosuite/backend/internal/domain/sync"
	"github.com/restosuite/backend/internal/infrastructure/persistence/models"
)

// GormDeadLetterRepository implements sync.DeadLetterRepository using GORM
type GormDeadLetterRepository struct {
	db *gorm.DB
}

// NewGormDeadLetterRepository creates a new GormDeadLetterRepository
func NewGormDeadLetterRepository(db *gorm.DB) *GormDeadLetterRepository {
	return &GormDeadLetterRepository{db: db}
}

// Save persists a new dead letter entry
func (r *GormDeadLetterRepository) Save(ctx context.Context, entry *syncdomain.DeadLetterEntry) error {
	return r.db.WithContext(ctx).Create(models.DeadLetterModelFromDomain(entry)).Error
}

// Update persists entry state transitions
func (r *GormDeadLetterRepository) Update(ctx context.Context, entry *syncdomain.DeadLetterEntry) error {
	return r.db.WithContext(ctx).Save(models.DeadLetterModelFromDomain(entry)).Error
}

// FindByID finds a dead letter entry by ID
func (r *GormDeadLetterRepository) FindByID(ctx context.Context, id uuid.UUID) (*syncdomain.DeadLetterEntry, error) {
	var model models.DeadLetterModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, syncdomain.ErrDeadLetterNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists dead letter entries matching the filter
func (r *GormDeadLetterRepository) FindAll(ctx context.Context, filter syncdomain.DeadLetterFilter) ([]syncdomain.DeadLetterEntry, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.DeadLetterModel{})

	if filter.VendorID != nil {
		query = query.Where("vendor_id = ?", *filter.VendorID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var entryModels []models.DeadLetterModel
	if err := query.Order("created_at DESC").Find(&entryModels).Error; err != nil {
		return nil, 0, err
	}

	entries := make([]syncdomain.DeadLetterEntry, len(entryModels))
	for i := range entryModels {
		entries[i] = *entryModels[i].ToDomain()
	}
	return entries, total, nil
}

// CountPending counts unreviewed entries
func (r *GormDeadLetterRepository) CountPending(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.DeadLetterModel{}).
		Where("status = ?", string(syncdomain.DeadLetterStatusPending)).
		Count(&count).Error
	return count, err
}

// DeleteResolvedBefore purges handled entries older than the cutoff
func (r *GormDeadLetterRepository) DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status IN ? AND resolved_at < ?",
			[]string{string(syncdomain.DeadLetterStatusRetried), string(syncdomain.DeadLetterStatusResolved)},
			cutoff).
		Delete(&models.DeadLetterModel{})
	return result.RowsAffected, result.Error
}

// Ensure GormDeadLetterRepository implements sync.DeadLetterRepository
var _ syncdomain.DeadLetterRepository = (*GormDeadLetterRepository)(nil)
