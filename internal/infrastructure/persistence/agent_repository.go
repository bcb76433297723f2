package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/restosuite/backend/internal/domain/agent"
	"github.com/restosuite/backend/internal/infrastructure/persistence/models"
)

// GormAgentRepository implements agent.Repository using GORM
type GormAgentRepository struct {
	db *gorm.DB
}

// NewGormAgentRepository creates a new GormAgentRepository
func NewGormAgentRepository(db *gorm.DB) *GormAgentRepository {
	return &GormAgentRepository{db: db}
}

// Save creates or updates a registration, upserting on vendor_id
func (r *GormAgentRepository) Save(ctx context.Context, reg *agent.Registration) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "vendor_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"agent_url", "erp_type", "status", "token_hash", "last_heartbeat", "updated_at",
			}),
		}).
		Create(models.AgentRegistrationModelFromDomain(reg)).Error
}

// FindByVendor finds the registration for a vendor
func (r *GormAgentRepository) FindByVendor(ctx context.Context, vendorID uuid.UUID) (*agent.Registration, error) {
	var model models.AgentRegistrationModel
	err := r.db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, agent.ErrAgentNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll returns every registration
func (r *GormAgentRepository) FindAll(ctx context.Context) ([]agent.Registration, error) {
	var regModels []models.AgentRegistrationModel
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&regModels).Error; err != nil {
		return nil, err
	}

	regs := make([]agent.Registration, len(regModels))
	for i := range regModels {
		regs[i] = *regModels[i].ToDomain()
	}
	return regs, nil
}

// UpdateHeartbeat stores a heartbeat timestamp and resets status to online
func (r *GormAgentRepository) UpdateHeartbeat(ctx context.Context, vendorID uuid.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.AgentRegistrationModel{}).
		Where("vendor_id = ?", vendorID).
		Updates(map[string]any{
			"last_heartbeat": at,
			"status":         string(agent.StatusOnline),
			"updated_at":     time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return agent.ErrAgentNotFound
	}
	return nil
}

// UpdateStatus writes a derived status (health sweep write-through)
func (r *GormAgentRepository) UpdateStatus(ctx context.Context, vendorID uuid.UUID, status agent.Status) error {
	return r.db.WithContext(ctx).
		Model(&models.AgentRegistrationModel{}).
		Where("vendor_id = ?", vendorID).
		Updates(map[string]any{
			"status":     string(status),
			"updated_at": time.Now(),
		}).Error
}

// Delete removes a registration
func (r *GormAgentRepository) Delete(ctx context.Context, vendorID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Delete(&models.AgentRegistrationModel{}, "vendor_id = ?", vendorID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return agent.ErrAgentNotFound
	}
	return nil
}

// Ensure GormAgentRepository implements agent.Repository
var _ agent.Repository = (*GormAgentRepository)(nil)
