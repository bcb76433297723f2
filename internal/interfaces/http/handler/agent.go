package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/restosuite/backend/internal/application/agentreg"
)

// AgentHandler manages vendor agent registrations.
type AgentHandler struct {
	BaseHandler
	agents *agentreg.Service
}

// NewAgentHandler creates a new AgentHandler.
func NewAgentHandler(agents *agentreg.Service) *AgentHandler {
	return &AgentHandler{agents: agents}
}

// RegisterPublicRoutes registers the unauthenticated registration endpoint.
// Registration is the bootstrap step: the agent has no credential yet, it
// supplies the shared token that later authenticates everything else.
func (h *AgentHandler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/agents/register", h.Register)
}

// RegisterAgentRoutes registers agent-authenticated routes.
func (h *AgentHandler) RegisterAgentRoutes(rg *gin.RouterGroup) {
	rg.POST("/heartbeat", h.Heartbeat)
}

// RegisterRoutes registers admin-facing agent routes.
func (h *AgentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	agents := rg.Group("/agents")
	{
		agents.GET("", h.List)
		agents.GET("/:vendorId", h.Get)
		agents.DELETE("/:vendorId", h.Deregister)
	}
}

// Register creates or replaces the agent registration for a vendor.
func (h *AgentHandler) Register(c *gin.Context) {
	var req agentreg.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.agents.Register(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Heartbeat records a liveness signal from the authenticated agent.
func (h *AgentHandler) Heartbeat(c *gin.Context) {
	vendorID, ok := getVendorID(c)
	if !ok {
		h.Unauthorized(c, "Agent identity missing")
		return
	}
	if err := h.agents.Heartbeat(c.Request.Context(), vendorID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// List returns every agent registration with its derived health status.
func (h *AgentHandler) List(c *gin.Context) {
	resp, err := h.agents.List(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Get returns one vendor's agent registration.
func (h *AgentHandler) Get(c *gin.Context) {
	vendorID, err := parseUUIDParam(c, "vendorId")
	if err != nil {
		h.BadRequest(c, "Invalid vendor ID")
		return
	}
	resp, err := h.agents.Get(c.Request.Context(), vendorID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Deregister removes a vendor's agent registration.
func (h *AgentHandler) Deregister(c *gin.Context) {
	vendorID, err := parseUUIDParam(c, "vendorId")
	if err != nil {
		h.BadRequest(c, "Invalid vendor ID")
		return
	}
	if err := h.agents.Deregister(c.Request.Context(), vendorID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
