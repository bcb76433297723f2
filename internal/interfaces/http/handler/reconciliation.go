package handler

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/restosuite/backend/internal/application/reconcile"
	"github.com/restosuite/backend/internal/domain/reconciliation"
	"github.com/restosuite/backend/internal/interfaces/http/dto"
)

// ReconciliationHandler triggers checksum reconciliation runs and exposes
// their audit trail.
type ReconciliationHandler struct {
	BaseHandler
	reconciler *reconcile.Service
}

// NewReconciliationHandler creates a new ReconciliationHandler.
func NewReconciliationHandler(reconciler *reconcile.Service) *ReconciliationHandler {
	return &ReconciliationHandler{reconciler: reconciler}
}

// RegisterRoutes registers admin-facing reconciliation routes.
func (h *ReconciliationHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/vendors/:vendorId/reconcile", h.Run)
	rg.GET("/reconciliation/events", h.ListEvents)
}

// Run executes a full checksum reconciliation for one vendor and returns the
// run summary. The run is synchronous; large catalogs can take a while.
func (h *ReconciliationHandler) Run(c *gin.Context) {
	vendorID, err := parseUUIDParam(c, "vendorId")
	if err != nil {
		h.BadRequest(c, "Invalid vendor ID")
		return
	}

	summary, err := h.reconciler.RunForVendor(c.Request.Context(), vendorID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// eventListQuery binds reconciliation event list filters.
type eventListQuery struct {
	VendorID *string `form:"vendor_id" binding:"omitempty,uuid"`
	Type     string  `form:"type" binding:"omitempty,oneof=FULL_CHECKSUM INCREMENTAL_SYNC DRIFT_DETECTED DRIFT_RESOLVED"`
	Page     int     `form:"page" binding:"omitempty,min=1"`
	PageSize int     `form:"page_size" binding:"omitempty,min=1,max=200"`
}

// ListEvents returns reconciliation events, newest first.
func (h *ReconciliationHandler) ListEvents(c *gin.Context) {
	var query eventListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.BindError(c, err)
		return
	}

	filter := reconciliation.Filter{
		Page:     query.Page,
		PageSize: query.PageSize,
	}
	if query.VendorID != nil {
		vendorID, err := uuid.Parse(*query.VendorID)
		if err != nil {
			h.BadRequest(c, "Invalid vendor ID")
			return
		}
		filter.VendorID = &vendorID
	}
	if query.Type != "" {
		eventType := reconciliation.EventType(query.Type)
		filter.Type = &eventType
	}

	events, total, err := h.reconciler.ListEvents(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, toEventResponses(events), dto.NewMeta(query.Page, query.PageSize, total))
}

// EventResponse represents a reconciliation event in API responses.
type EventResponse struct {
	ID         uuid.UUID       `json:"id"`
	VendorID   uuid.UUID       `json:"vendor_id"`
	Type       string          `json:"type"`
	Summary    json.RawMessage `json:"summary"`
	DurationMs int64           `json:"duration_ms"`
	CreatedAt  time.Time       `json:"created_at"`
}

func toEventResponses(events []reconciliation.Event) []EventResponse {
	resp := make([]EventResponse, 0, len(events))
	for _, e := range events {
		resp = append(resp, EventResponse{
			ID:         e.ID,
			VendorID:   e.VendorID,
			Type:       string(e.Type),
			Summary:    e.Summary,
			DurationMs: e.DurationMs,
			CreatedAt:  e.CreatedAt,
		})
	}
	return resp
}
