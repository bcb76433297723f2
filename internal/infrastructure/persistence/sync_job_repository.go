package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	syncdomain "github.com/restosuite/backend/internal/domain/sync"
	"github.com/restosuite/backend/internal/infrastructure/persistence/models"
)

// GormSyncJobRepository implements sync.JobRepository using GORM
type GormSyncJobRepository struct {
	db *gorm.DB
}

// NewGormSyncJobRepository creates a new GormSyncJobRepository
func NewGormSyncJobRepository(db *gorm.DB) *GormSyncJobRepository {
	return &GormSyncJobRepository{db: db}
}

// Save inserts a new job
func (r *GormSyncJobRepository) Save(ctx context.Context, job *syncdomain.Job) error {
	return r.db.WithContext(ctx).Create(models.SyncJobModelFromDomain(job)).Error
}

// Update persists job state transitions
func (r *GormSyncJobRepository) Update(ctx context.Context, job *syncdomain.Job) error {
	return r.db.WithContext(ctx).Save(models.SyncJobModelFromDomain(job)).Error
}

// FindByID finds a job by ID
func (r *GormSyncJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*syncdomain.Job, error) {
	var model models.SyncJobModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, syncdomain.ErrJobNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindActiveByOrder finds a pending or processing job for a source order
func (r *GormSyncJobRepository) FindActiveByOrder(ctx context.Context, vendorID, orderID uuid.UUID) (*syncdomain.Job, error) {
	var model models.SyncJobModel
	err := r.db.WithContext(ctx).
		Where("vendor_id = ? AND order_id = ? AND status IN ?",
			vendorID, orderID,
			[]string{string(syncdomain.JobStatusPending), string(syncdomain.JobStatusProcessing)}).
		Order("created_at DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, syncdomain.ErrJobNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindDue returns pending jobs whose next retry time is unset or past due
func (r *GormSyncJobRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]*syncdomain.Job, error) {
	var jobModels []models.SyncJobModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND (next_retry_at IS NULL OR next_retry_at <= ?)",
			string(syncdomain.JobStatusPending), now).
		Order("created_at ASC").
		Limit(limit).
		Find(&jobModels).Error
	if err != nil {
		return nil, err
	}

	jobs := make([]*syncdomain.Job, len(jobModels))
	for i := range jobModels {
		jobs[i] = jobModels[i].ToDomain()
	}
	return jobs, nil
}

// FindStalled returns processing jobs whose claim predates the cutoff
func (r *GormSyncJobRepository) FindStalled(ctx context.Context, cutoff time.Time, limit int) ([]*syncdomain.Job, error) {
	var jobModels []models.SyncJobModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND started_at IS NOT NULL AND started_at < ?",
			string(syncdomain.JobStatusProcessing), cutoff).
		Order("started_at ASC").
		Limit(limit).
		Find(&jobModels).Error
	if err != nil {
		return nil, err
	}

	jobs := make([]*syncdomain.Job, len(jobModels))
	for i := range jobModels {
		jobs[i] = jobModels[i].ToDomain()
	}
	return jobs, nil
}

// ClaimProcessing atomically flips pending rows to processing and returns
// the claimed jobs. Rows already claimed by a concurrent worker are skipped
// via FOR UPDATE SKIP LOCKED.
func (r *GormSyncJobRepository) ClaimProcessing(ctx context.Context, ids []uuid.UUID) ([]*syncdomain.Job, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var claimed []*syncdomain.Job

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var jobModels []models.SyncJobModel
		if err := tx.
			Clauses(clause.Locking{
				Strength: "UPDATE",
				Options:  "SKIP LOCKED",
			}).
			Where("id IN ? AND status = ?", ids, string(syncdomain.JobStatusPending)).
			Find(&jobModels).Error; err != nil {
			return err
		}

		if len(jobModels) == 0 {
			return nil
		}

		now := time.Now()
		claimedIDs := make([]uuid.UUID, len(jobModels))
		for i := range jobModels {
			claimedIDs[i] = jobModels[i].ID
		}

		if err := tx.Model(&models.SyncJobModel{}).
			Where("id IN ?", claimedIDs).
			Updates(map[string]any{
				"status":     string(syncdomain.JobStatusProcessing),
				"started_at": now,
				"updated_at": now,
			}).Error; err != nil {
			return err
		}

		claimed = make([]*syncdomain.Job, len(jobModels))
		for i := range jobModels {
			job := jobModels[i].ToDomain()
			job.Status = syncdomain.JobStatusProcessing
			job.StartedAt = &now
			job.UpdatedAt = now
			claimed[i] = job
		}
		return nil
	})

	return claimed, err
}

// FindAll lists jobs matching the filter
func (r *GormSyncJobRepository) FindAll(ctx context.Context, filter syncdomain.JobFilter) ([]syncdomain.Job, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.SyncJobModel{})

	if filter.VendorID != nil {
		query = query.Where("vendor_id = ?", *filter.VendorID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", string(*filter.Status))
	}
	if filter.Operation != nil {
		query = query.Where("operation = ?", string(*filter.Operation))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var jobModels []models.SyncJobModel
	if err := query.Order("created_at DESC").Find(&jobModels).Error; err != nil {
		return nil, 0, err
	}

	jobs := make([]syncdomain.Job, len(jobModels))
	for i := range jobModels {
		jobs[i] = *jobModels[i].ToDomain()
	}
	return jobs, total, nil
}

// DeleteExpired purges jobs past their TTL regardless of terminal state
func (r *GormSyncJobRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&models.SyncJobModel{})
	return result.RowsAffected, result.Error
}

// CountByStatus returns job counts per status
func (r *GormSyncJobRepository) CountByStatus(ctx context.Context) (map[syncdomain.JobStatus]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.SyncJobModel{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[syncdomain.JobStatus]int64, len(rows))
	for _, row := range rows {
		counts[syncdomain.JobStatus(row.Status)] = row.Count
	}
	return counts, nil
}

// Ensure GormSyncJobRepository implements sync.JobRepository
var _ syncdomain.JobRepository = (*GormSyncJobRepository)(nil)
