package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/restosuite/backend/internal/domain/agent"
)

// AgentRegistrationModel is the persistence model for vendor agent registrations.
type AgentRegistrationModel struct {
	BaseModel
	VendorID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	AgentURL      string    `gorm:"type:varchar(500);not null"`
	ErpType       string    `gorm:"type:varchar(50)"`
	Status        string    `gorm:"type:varchar(20);not null;default:ONLINE;index"`
	TokenHash     string    `gorm:"type:varchar(100);not null"`
	LastHeartbeat time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (AgentRegistrationModel) TableName() string {
	return "agent_registrations"
}

// ToDomain converts the persistence model to a domain Registration
func (m *AgentRegistrationModel) ToDomain() *agent.Registration {
	return &agent.Registration{
		BaseEntity:    m.BaseModel.ToDomain(),
		VendorID:      m.VendorID,
		AgentURL:      m.AgentURL,
		ErpType:       m.ErpType,
		Status:        agent.Status(m.Status),
		TokenHash:     m.TokenHash,
		LastHeartbeat: m.LastHeartbeat,
	}
}

// AgentRegistrationModelFromDomain creates a persistence model from a domain Registration
func AgentRegistrationModelFromDomain(r *agent.Registration) *AgentRegistrationModel {
	m := &AgentRegistrationModel{
		VendorID:      r.VendorID,
		AgentURL:      r.AgentURL,
		ErpType:       r.ErpType,
		Status:        string(r.Status),
		TokenHash:     r.TokenHash,
		LastHeartbeat: r.LastHeartbeat,
	}
	m.FromDomainBaseEntity(r.BaseEntity)
	return m
}
