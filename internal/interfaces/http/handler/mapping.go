package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/restosuite/backend/internal/application/mappingsvc"
	"github.com/restosuite/backend/internal/interfaces/http/dto"
)

// MappingHandler manages vendor-scoped ERP code mappings.
type MappingHandler struct {
	BaseHandler
	mappings *mappingsvc.Service
}

// NewMappingHandler creates a new MappingHandler.
func NewMappingHandler(mappings *mappingsvc.Service) *MappingHandler {
	return &MappingHandler{mappings: mappings}
}

// RegisterRoutes registers admin-facing mapping routes.
func (h *MappingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	mappings := rg.Group("/vendors/:vendorId/mappings")
	{
		mappings.POST("", h.Create)
		mappings.POST("/seed", h.Seed)
		mappings.GET("", h.List)
		mappings.GET("/:id", h.Get)
		mappings.PUT("/:id", h.Update)
		mappings.DELETE("/:id", h.Deactivate)
	}
}

// Create adds a mapping for a vendor, reactivating a deactivated one when
// the same (type, erp_code) pair already exists.
func (h *MappingHandler) Create(c *gin.Context) {
	vendorID, err := parseUUIDParam(c, "vendorId")
	if err != nil {
		h.BadRequest(c, "Invalid vendor ID")
		return
	}

	var req mappingsvc.CreateMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.mappings.Create(c.Request.Context(), vendorID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// SeedResponse reports how many mappings a seed request loaded.
type SeedResponse struct {
	Loaded int `json:"loaded"`
}

// Seed bulk-loads mappings for a vendor, typically at onboarding.
func (h *MappingHandler) Seed(c *gin.Context) {
	vendorID, err := parseUUIDParam(c, "vendorId")
	if err != nil {
		h.BadRequest(c, "Invalid vendor ID")
		return
	}

	var req mappingsvc.SeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	loaded, err := h.mappings.Seed(c.Request.Context(), vendorID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, SeedResponse{Loaded: loaded})
}

// List returns a vendor's mappings with optional type and code filters.
func (h *MappingHandler) List(c *gin.Context) {
	vendorID, err := parseUUIDParam(c, "vendorId")
	if err != nil {
		h.BadRequest(c, "Invalid vendor ID")
		return
	}

	var filter mappingsvc.ListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}

	resp, total, err := h.mappings.List(c.Request.Context(), vendorID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, resp, dto.NewMeta(filter.Page, filter.PageSize, total))
}

// Get returns one mapping.
func (h *MappingHandler) Get(c *gin.Context) {
	vendorID, err := parseUUIDParam(c, "vendorId")
	if err != nil {
		h.BadRequest(c, "Invalid vendor ID")
		return
	}
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid mapping ID")
		return
	}

	resp, err := h.mappings.Get(c.Request.Context(), vendorID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Update replaces the canonical side of a mapping.
func (h *MappingHandler) Update(c *gin.Context) {
	vendorID, err := parseUUIDParam(c, "vendorId")
	if err != nil {
		h.BadRequest(c, "Invalid vendor ID")
		return
	}
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid mapping ID")
		return
	}

	var req mappingsvc.UpdateMappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.mappings.Update(c.Request.Context(), vendorID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Deactivate soft-deletes a mapping. Already-synced rows keep their resolved
// codes; only future ingests are affected.
func (h *MappingHandler) Deactivate(c *gin.Context) {
	vendorID, err := parseUUIDParam(c, "vendorId")
	if err != nil {
		h.BadRequest(c, "Invalid vendor ID")
		return
	}
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid mapping ID")
		return
	}

	if err := h.mappings.Deactivate(c.Request.Context(), vendorID, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
