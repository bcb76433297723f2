package models

import (
	"github.com/google/uuid"

	"github.com/restosuite/backend/internal/domain/mapping"
)

// ErpCodeMappingModel is the persistence model for ERP code mappings.
type ErpCodeMappingModel struct {
	BaseModel
	VendorID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_mappings_natural_key,priority:1"`
	Type       string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_mappings_natural_key,priority:2"`
	ErpCode    string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_mappings_natural_key,priority:3"`
	RestoCode  string    `gorm:"type:varchar(100);not null"`
	RestoLabel string    `gorm:"type:varchar(255)"`
	IsActive   bool      `gorm:"not null;default:true;index"`
}

// TableName returns the table name for GORM
func (ErpCodeMappingModel) TableName() string {
	return "erp_code_mappings"
}

// ToDomain converts the persistence model to a domain ErpCodeMapping
func (m *ErpCodeMappingModel) ToDomain() *mapping.ErpCodeMapping {
	return &mapping.ErpCodeMapping{
		BaseEntity: m.BaseModel.ToDomain(),
		VendorID:   m.VendorID,
		Type:       mapping.Type(m.Type),
		ErpCode:    m.ErpCode,
		RestoCode:  m.RestoCode,
		RestoLabel: m.RestoLabel,
		IsActive:   m.IsActive,
	}
}

// ErpCodeMappingModelFromDomain creates a persistence model from a domain ErpCodeMapping
func ErpCodeMappingModelFromDomain(e *mapping.ErpCodeMapping) *ErpCodeMappingModel {
	m := &ErpCodeMappingModel{
		VendorID:   e.VendorID,
		Type:       string(e.Type),
		ErpCode:    e.ErpCode,
		RestoCode:  e.RestoCode,
		RestoLabel: e.RestoLabel,
		IsActive:   e.IsActive,
	}
	m.FromDomainBaseEntity(e.BaseEntity)
	return m
}
