package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/restosuite/backend/internal/domain/catalog"
)

// SyncedItemModel is the persistence model for ERP-mirrored catalog items.
type SyncedItemModel struct {
	BaseModel
	VendorID         uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_items_vendor_sku,priority:1"`
	SKU              string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_items_vendor_sku,priority:2"`
	Name             string          `gorm:"type:varchar(255);not null"`
	ErpUnitCode      string          `gorm:"type:varchar(50);not null"`
	ErpVatCode       string          `gorm:"type:varchar(50);not null"`
	ErpFamilyCode    string          `gorm:"type:varchar(50)"`
	ErpSubfamilyCode string          `gorm:"type:varchar(50)"`
	UnitCode         string          `gorm:"type:varchar(50);not null"`
	VatCode          string          `gorm:"type:varchar(50);not null"`
	FamilyCode       *string         `gorm:"type:varchar(50)"`
	SubfamilyCode    *string         `gorm:"type:varchar(50)"`
	Price            decimal.Decimal `gorm:"type:decimal(12,4);not null"`
	IsActive         bool            `gorm:"not null;default:true"`
	ContentHash      string          `gorm:"type:char(64);not null"`
	LastSyncedAt     time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SyncedItemModel) TableName() string {
	return "synced_items"
}

// ToDomain converts the persistence model to a domain SyncedItem
func (m *SyncedItemModel) ToDomain() *catalog.SyncedItem {
	return &catalog.SyncedItem{
		BaseEntity:       m.BaseModel.ToDomain(),
		VendorID:         m.VendorID,
		SKU:              m.SKU,
		Name:             m.Name,
		ErpUnitCode:      m.ErpUnitCode,
		ErpVatCode:       m.ErpVatCode,
		ErpFamilyCode:    m.ErpFamilyCode,
		ErpSubfamilyCode: m.ErpSubfamilyCode,
		UnitCode:         m.UnitCode,
		VatCode:          m.VatCode,
		FamilyCode:       m.FamilyCode,
		SubfamilyCode:    m.SubfamilyCode,
		Price:            m.Price,
		IsActive:         m.IsActive,
		ContentHash:      m.ContentHash,
		LastSyncedAt:     m.LastSyncedAt,
	}
}

// SyncedItemModelFromDomain creates a persistence model from a domain SyncedItem
func SyncedItemModelFromDomain(item *catalog.SyncedItem) *SyncedItemModel {
	m := &SyncedItemModel{
		VendorID:         item.VendorID,
		SKU:              item.SKU,
		Name:             item.Name,
		ErpUnitCode:      item.ErpUnitCode,
		ErpVatCode:       item.ErpVatCode,
		ErpFamilyCode:    item.ErpFamilyCode,
		ErpSubfamilyCode: item.ErpSubfamilyCode,
		UnitCode:         item.UnitCode,
		VatCode:          item.VatCode,
		FamilyCode:       item.FamilyCode,
		SubfamilyCode:    item.SubfamilyCode,
		Price:            item.Price,
		IsActive:         item.IsActive,
		ContentHash:      item.ContentHash,
		LastSyncedAt:     item.LastSyncedAt,
	}
	m.FromDomainBaseEntity(item.BaseEntity)
	return m
}

// SyncedStockModel is the persistence model for ERP-mirrored stock levels.
type SyncedStockModel struct {
	BaseModel
	VendorID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_stock_vendor_wh_sku,priority:1"`
	ErpWarehouseID string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_stock_vendor_wh_sku,priority:2"`
	SKU            string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_stock_vendor_wh_sku,priority:3"`
	Quantity       decimal.Decimal `gorm:"type:decimal(14,4);not null"`
	ContentHash    string          `gorm:"type:char(64);not null"`
	LastSyncedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SyncedStockModel) TableName() string {
	return "synced_stock"
}

// ToDomain converts the persistence model to a domain SyncedStock
func (m *SyncedStockModel) ToDomain() *catalog.SyncedStock {
	return &catalog.SyncedStock{
		BaseEntity:     m.BaseModel.ToDomain(),
		VendorID:       m.VendorID,
		ErpWarehouseID: m.ErpWarehouseID,
		SKU:            m.SKU,
		Quantity:       m.Quantity,
		ContentHash:    m.ContentHash,
		LastSyncedAt:   m.LastSyncedAt,
	}
}

// SyncedStockModelFromDomain creates a persistence model from a domain SyncedStock
func SyncedStockModelFromDomain(stock *catalog.SyncedStock) *SyncedStockModel {
	m := &SyncedStockModel{
		VendorID:       stock.VendorID,
		ErpWarehouseID: stock.ErpWarehouseID,
		SKU:            stock.SKU,
		Quantity:       stock.Quantity,
		ContentHash:    stock.ContentHash,
		LastSyncedAt:   stock.LastSyncedAt,
	}
	m.FromDomainBaseEntity(stock.BaseEntity)
	return m
}

// SyncedWarehouseModel is the persistence model for ERP-mirrored warehouses.
type SyncedWarehouseModel struct {
	BaseModel
	VendorID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_wh_vendor_erp_id,priority:1"`
	ErpWarehouseID string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_wh_vendor_erp_id,priority:2"`
	Name           string    `gorm:"type:varchar(255);not null"`
	Address        string    `gorm:"type:text"`
	IsActive       bool      `gorm:"not null;default:true"`
	ContentHash    string    `gorm:"type:char(64);not null"`
	LastSyncedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SyncedWarehouseModel) TableName() string {
	return "synced_warehouses"
}

// ToDomain converts the persistence model to a domain SyncedWarehouse
func (m *SyncedWarehouseModel) ToDomain() *catalog.SyncedWarehouse {
	return &catalog.SyncedWarehouse{
		BaseEntity:     m.BaseModel.ToDomain(),
		VendorID:       m.VendorID,
		ErpWarehouseID: m.ErpWarehouseID,
		Name:           m.Name,
		Address:        m.Address,
		IsActive:       m.IsActive,
		ContentHash:    m.ContentHash,
		LastSyncedAt:   m.LastSyncedAt,
	}
}

// SyncedWarehouseModelFromDomain creates a persistence model from a domain SyncedWarehouse
func SyncedWarehouseModelFromDomain(wh *catalog.SyncedWarehouse) *SyncedWarehouseModel {
	m := &SyncedWarehouseModel{
		VendorID:       wh.VendorID,
		ErpWarehouseID: wh.ErpWarehouseID,
		Name:           wh.Name,
		Address:        wh.Address,
		IsActive:       wh.IsActive,
		ContentHash:    wh.ContentHash,
		LastSyncedAt:   wh.LastSyncedAt,
	}
	m.FromDomainBaseEntity(wh.BaseEntity)
	return m
}
