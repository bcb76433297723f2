package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/restosuite/backend/internal/application/syncjob"
	"github.com/restosuite/backend/internal/interfaces/http/dto"
)

// DeadLetterHandler exposes the dead letter queue for operator review.
type DeadLetterHandler struct {
	BaseHandler
	jobs *syncjob.Service
}

// NewDeadLetterHandler creates a new DeadLetterHandler.
func NewDeadLetterHandler(jobs *syncjob.Service) *DeadLetterHandler {
	return &DeadLetterHandler{jobs: jobs}
}

// RegisterRoutes registers admin-facing dead letter routes.
func (h *DeadLetterHandler) RegisterRoutes(rg *gin.RouterGroup) {
	dlq := rg.Group("/dead-letters")
	{
		dlq.GET("", h.List)
		dlq.POST("/:id/retry", h.Retry)
		dlq.POST("/:id/resolve", h.Resolve)
	}
}

// List returns dead letter entries with optional vendor and status filters.
func (h *DeadLetterHandler) List(c *gin.Context) {
	var filter syncjob.DeadLetterListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}

	resp, total, err := h.jobs.ListDeadLetters(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, resp, dto.NewMeta(filter.Page, filter.PageSize, total))
}

// Retry re-enqueues a dead-lettered job with a fresh retry budget.
func (h *DeadLetterHandler) Retry(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid dead letter ID")
		return
	}

	resp, err := h.jobs.RetryDeadLetter(c.Request.Context(), id, getOperator(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Resolve closes a dead letter entry without further delivery attempts.
func (h *DeadLetterHandler) Resolve(c *gin.Context) {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid dead letter ID")
		return
	}

	var req syncjob.ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	if err := h.jobs.ResolveDeadLetter(c.Request.Context(), id, getOperator(c), req); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
