package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/restosuite/backend/internal/domain/agent"
	"github.com/restosuite/backend/internal/infrastructure/breaker"
	"github.com/restosuite/backend/internal/interfaces/http/dto"
)

// SystemHandler exposes liveness, readiness, and circuit breaker state.
type SystemHandler struct {
	BaseHandler
	db        *gorm.DB
	breakers  *breaker.Registry
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler.
func NewSystemHandler(db *gorm.DB, breakers *breaker.Registry) *SystemHandler {
	return &SystemHandler{
		db:        db,
		breakers:  breakers,
		startTime: time.Now(),
	}
}

// RegisterPublicRoutes registers unauthenticated system routes.
func (h *SystemHandler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	system := rg.Group("/system")
	{
		system.GET("/ping", h.Ping)
		system.GET("/health", h.Health)
	}
}

// RegisterRoutes registers admin-facing system routes.
func (h *SystemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	system := rg.Group("/system")
	{
		system.GET("/breakers", h.Breakers)
		system.POST("/breakers/reset", h.ResetBreaker)
	}
}

// PingResponse represents the ping response.
type PingResponse struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Ping answers a liveness probe.
func (h *SystemHandler) Ping(c *gin.Context) {
	h.Success(c, PingResponse{
		Message:   "pong",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthResponse represents the readiness check response.
type HealthResponse struct {
	Status    string `json:"status"`
	Database  string `json:"database"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

// Health answers a readiness probe, including a database ping.
func (h *SystemHandler) Health(c *gin.Context) {
	resp := HealthResponse{
		Status:    "ok",
		Database:  "ok",
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}

	if sqlDB, err := h.db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		resp.Status = "degraded"
		resp.Database = "unreachable"
		c.JSON(http.StatusServiceUnavailable, dto.NewSuccessResponse(resp))
		return
	}
	h.Success(c, resp)
}

// Breakers returns the state of every circuit breaker seen so far.
func (h *SystemHandler) Breakers(c *gin.Context) {
	h.Success(c, h.breakers.Snapshot())
}

// ResetBreakerRequest identifies one circuit breaker to reset.
type ResetBreakerRequest struct {
	VendorID string `json:"vendor_id" binding:"required,uuid"`
	APIType  string `json:"api_type" binding:"required,oneof=orders items checksums"`
}

// ResetBreaker forces a breaker closed after an operator has confirmed the
// vendor's ERP is healthy again.
func (h *SystemHandler) ResetBreaker(c *gin.Context) {
	var req ResetBreakerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	vendorID, err := parseUUIDString(req.VendorID)
	if err != nil {
		h.BadRequest(c, "Invalid vendor ID")
		return
	}

	h.breakers.Reset(vendorID, agent.APIType(req.APIType))
	h.NoContent(c)
}
