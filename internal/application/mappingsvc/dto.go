package mappingsvc

import (
	"time"

	"github.com/google/uuid"

	"github.com/restosuite/backend/internal/domain/mapping"
)

// CreateMappingRequest creates or reactivates a mapping
type CreateMappingRequest struct {
	Type       string `json:"type" binding:"required,oneof=UNIT VAT FAMILY SUBFAMILY"`
	ErpCode    string `json:"erp_code" binding:"required,max=100"`
	RestoCode  string `json:"resto_code" binding:"required,max=100"`
	RestoLabel string `json:"resto_label" binding:"max=255"`
}

// UpdateMappingRequest replaces the canonical side of a mapping
type UpdateMappingRequest struct {
	RestoCode  string `json:"resto_code" binding:"required,max=100"`
	RestoLabel string `json:"resto_label" binding:"max=255"`
}

// SeedRequest bulk-loads mappings for one vendor
type SeedRequest struct {
	Mappings []CreateMappingRequest `json:"mappings" binding:"required,min=1,max=5000,dive"`
}

// MappingResponse represents a mapping in API responses
type MappingResponse struct {
	ID         uuid.UUID `json:"id"`
	VendorID   uuid.UUID `json:"vendor_id"`
	Type       string    `json:"type"`
	ErpCode    string    `json:"erp_code"`
	RestoCode  string    `json:"resto_code"`
	RestoLabel string    `json:"resto_label"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ListFilter represents filter options for mapping lists
type ListFilter struct {
	Type     string `form:"type" binding:"omitempty,oneof=UNIT VAT FAMILY SUBFAMILY"`
	ErpCode  string `form:"erp_code"`
	IsActive *bool  `form:"is_active"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=200"`
}

func toMappingResponse(m *mapping.ErpCodeMapping) MappingResponse {
	return MappingResponse{
		ID:         m.ID,
		VendorID:   m.VendorID,
		Type:       string(m.Type),
		ErpCode:    m.ErpCode,
		RestoCode:  m.RestoCode,
		RestoLabel: m.RestoLabel,
		IsActive:   m.IsActive,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}
