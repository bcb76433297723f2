package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/restosuite/backend/internal/application/ingest"
	"github.com/restosuite/backend/internal/infrastructure/telemetry"
)

// SyncHandler receives catalog batches pushed by vendor agents. The vendor
// is taken from the agent auth middleware, never from the payload.
type SyncHandler struct {
	BaseHandler
	ingest  *ingest.Service
	metrics *telemetry.Metrics
}

// NewSyncHandler creates a new SyncHandler.
func NewSyncHandler(ingestService *ingest.Service, metrics *telemetry.Metrics) *SyncHandler {
	return &SyncHandler{
		ingest:  ingestService,
		metrics: metrics,
	}
}

// RegisterRoutes registers agent-facing sync routes.
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	sync := rg.Group("/sync")
	{
		sync.POST("/items", h.IngestItems)
		sync.POST("/stock", h.IngestStock)
		sync.POST("/warehouses", h.IngestWarehouses)
	}
}

// ItemBatchRequest is a batch of catalog items pushed by an agent.
type ItemBatchRequest struct {
	Items []ingest.ItemPayload `json:"items" binding:"required,min=1,dive"`
	Bulk  bool                 `json:"bulk"`
}

// StockBatchRequest is a batch of stock levels pushed by an agent.
type StockBatchRequest struct {
	Stock []ingest.StockPayload `json:"stock" binding:"required,min=1,dive"`
}

// WarehouseBatchRequest is a batch of warehouses pushed by an agent.
type WarehouseBatchRequest struct {
	Warehouses []ingest.WarehousePayload `json:"warehouses" binding:"required,min=1,dive"`
}

// IngestItems accepts a batch of catalog items from the vendor's agent and
// returns the per-record outcome report.
func (h *SyncHandler) IngestItems(c *gin.Context) {
	vendorID, ok := getVendorID(c)
	if !ok {
		h.Unauthorized(c, "Agent identity missing")
		return
	}

	var req ItemBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	report, err := h.ingest.IngestItems(c.Request.Context(), vendorID, req.Items, req.Bulk)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.metrics.RecordIngest(c.Request.Context(), "item", report.Processed, report.Skipped, report.Failed)
	h.Success(c, report)
}

// IngestStock accepts a batch of per-warehouse stock levels.
func (h *SyncHandler) IngestStock(c *gin.Context) {
	vendorID, ok := getVendorID(c)
	if !ok {
		h.Unauthorized(c, "Agent identity missing")
		return
	}

	var req StockBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	report, err := h.ingest.IngestStock(c.Request.Context(), vendorID, req.Stock)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.metrics.RecordIngest(c.Request.Context(), "stock", report.Processed, report.Skipped, report.Failed)
	h.Success(c, report)
}

// IngestWarehouses accepts a batch of warehouses.
func (h *SyncHandler) IngestWarehouses(c *gin.Context) {
	vendorID, ok := getVendorID(c)
	if !ok {
		h.Unauthorized(c, "Agent identity missing")
		return
	}

	var req WarehouseBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	report, err := h.ingest.IngestWarehouses(c.Request.Context(), vendorID, req.Warehouses)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.metrics.RecordIngest(c.Request.Context(), "warehouse", report.Processed, report.Skipped, report.Failed)
	h.Success(c, report)
}
