package agentreg

import (
	"time"

	"github.com/google/uuid"

	"github.com/restosuite/backend/internal/domain/agent"
)

// RegisterRequest is an agent self-registration.
type RegisterRequest struct {
	VendorID uuid.UUID `json:"vendor_id" binding:"required"`
	AgentURL string    `json:"agent_url" binding:"required,url,max=500"`
	ErpType  string    `json:"erp_type" binding:"required,max=50"`
	Token    string    `json:"token" binding:"required,min=16,max=255"`
}

// AgentResponse represents a registration in API responses. Status is derived
// from the last heartbeat at response time; the token hash never leaves the
// server.
type AgentResponse struct {
	ID            uuid.UUID `json:"id"`
	VendorID      uuid.UUID `json:"vendor_id"`
	AgentURL      string    `json:"agent_url"`
	ErpType       string    `json:"erp_type"`
	Status        string    `json:"status"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
	CreatedAt     time.Time `json:"created_at"`
}

func toAgentResponse(reg *agent.Registration, now time.Time) AgentResponse {
	return AgentResponse{
		ID:            reg.ID,
		VendorID:      reg.VendorID,
		AgentURL:      reg.AgentURL,
		ErpType:       reg.ErpType,
		Status:        string(reg.DeriveStatus(now)),
		LastHeartbeat: reg.LastHeartbeat,
		CreatedAt:     reg.CreatedAt,
	}
}
