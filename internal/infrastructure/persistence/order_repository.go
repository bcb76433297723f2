package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	syncdomain "github.com/restosuite/backend/internal/domain/sync"
	"github.com/restosuite/backend/internal/infrastructure/persistence/models"
)

// GormOrderRepository implements sync.OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Save persists a new order
func (r *GormOrderRepository) Save(ctx context.Context, order *syncdomain.Order) error {
	return r.db.WithContext(ctx).Create(models.OrderModelFromDomain(order)).Error
}

// Update persists order state transitions
func (r *GormOrderRepository) Update(ctx context.Context, order *syncdomain.Order) error {
	return r.db.WithContext(ctx).Save(models.OrderModelFromDomain(order)).Error
}

// FindByID finds an order by ID
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*syncdomain.Order, error) {
	var model models.OrderModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, syncdomain.ErrOrderNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByNumber finds an order by its vendor-scoped order number
func (r *GormOrderRepository) FindByNumber(ctx context.Context, vendorID uuid.UUID, orderNumber string) (*syncdomain.Order, error) {
	var model models.OrderModel
	err := r.db.WithContext(ctx).
		Where("vendor_id = ? AND order_number = ?", vendorID, orderNumber).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, syncdomain.ErrOrderNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Ensure GormOrderRepository implements sync.OrderRepository
var _ syncdomain.OrderRepository = (*GormOrderRepository)(nil)
