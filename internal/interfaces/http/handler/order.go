package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/restosuite/backend/internal/application/syncjob"
	"github.com/restosuite/backend/internal/domain/sync"
	"github.com/restosuite/backend/internal/infrastructure/telemetry"
	"github.com/restosuite/backend/internal/interfaces/http/dto"
)

// OrderHandler manages outbound orders, their sync jobs, and the agent
// callback that reports delivery outcomes.
type OrderHandler struct {
	BaseHandler
	jobs    *syncjob.Service
	metrics *telemetry.Metrics
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(jobs *syncjob.Service, metrics *telemetry.Metrics) *OrderHandler {
	return &OrderHandler{
		jobs:    jobs,
		metrics: metrics,
	}
}

// RegisterRoutes registers admin-facing order and job routes.
func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/vendors/:vendorId/orders", h.SubmitOrder)
	rg.POST("/vendors/:vendorId/jobs", h.CreateJob)

	jobs := rg.Group("/jobs")
	{
		jobs.GET("", h.ListJobs)
		jobs.GET("/stats", h.JobStats)
		jobs.GET("/:id", h.GetJob)
	}
}

// RegisterAgentRoutes registers the agent-authenticated callback route.
func (h *OrderHandler) RegisterAgentRoutes(rg *gin.RouterGroup) {
	rg.POST("/callbacks", h.Callback)
}

// SubmitOrder records an order and enqueues its delivery to the vendor's
// ERP. Resubmitting the same order number returns the existing job instead
// of enqueueing a duplicate.
func (h *OrderHandler) SubmitOrder(c *gin.Context) {
	vendorID, err := parseUUIDParam(c, "vendorId")
	if err != nil {
		h.BadRequest(c, "Invalid vendor ID")
		return
	}

	var req syncjob.SubmitOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.jobs.SubmitOrder(c.Request.Context(), vendorID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// CreateJob enqueues an ERP-bound job for an existing order, for example a
// cancellation.
func (h *OrderHandler) CreateJob(c *gin.Context) {
	vendorID, err := parseUUIDParam(c, "vendorId")
	if err != nil {
		h.BadRequest(c, "Invalid vendor ID")
		return
	}

	var req syncjob.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.jobs.CreateJob(c.Request.Context(), vendorID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Callback receives the terminal outcome of a delivered job from the
// vendor's agent.
func (h *OrderHandler) Callback(c *gin.Context) {
	vendorID, ok := getVendorID(c)
	if !ok {
		h.Unauthorized(c, "Agent identity missing")
		return
	}

	var req syncjob.CallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	if err := h.jobs.HandleCallback(c.Request.Context(), vendorID, req); err != nil {
		h.HandleError(c, err)
		return
	}

	h.metrics.RecordCallback(c.Request.Context(), req.Success)
	if !req.Success && req.Retryable {
		// A retryable failure only dead-letters the job once its retry
		// budget is exhausted.
		job, err := h.jobs.GetJob(c.Request.Context(), req.JobID)
		if err == nil && job.Status == string(sync.JobStatusFailed) && job.RetryCount >= job.MaxRetries {
			h.metrics.RecordDeadLetter(c.Request.Context())
		}
	}
	h.Success(c, gin.H{"message": "callback processed"})
}

// GetJob returns one sync job.
func (h *OrderHandler) GetJob(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid job ID")
		return
	}

	resp, err := h.jobs.GetJob(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ListJobs returns sync jobs with optional vendor, status, and operation
// filters.
func (h *OrderHandler) ListJobs(c *gin.Context) {
	var filter syncjob.JobListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}

	resp, total, err := h.jobs.ListJobs(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, resp, dto.NewMeta(filter.Page, filter.PageSize, total))
}

// JobStats returns job counts grouped by status.
func (h *OrderHandler) JobStats(c *gin.Context) {
	stats, err := h.jobs.JobStats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, stats)
}
