package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/restosuite/backend/internal/domain/shared"
)

// ---------------------------------------------------------------------------
// Agent Registration & Health
// ---------------------------------------------------------------------------

// Status is the derived liveness of a vendor agent.
type Status string

const (
	StatusOnline   Status = "ONLINE"
	StatusDegraded Status = "DEGRADED"
	StatusOffline  Status = "OFFLINE"
)

// Heartbeat thresholds. Status is a pure function of time since the last
// heartbeat; the persisted status column is a denormalized convenience.
const (
	DegradedAfter = 60 * time.Second
	OfflineAfter  = 300 * time.Second
)

// ErrAgentNotFound is returned when no registration exists for a vendor.
var ErrAgentNotFound = shared.NewDomainError("AGENT_NOT_FOUND", "No agent registered for this vendor")

// Registration is one vendor's ERP bridge process. VendorID is unique;
// re-registration rotates the stored token hash.
type Registration struct {
	shared.BaseEntity
	VendorID      uuid.UUID
	AgentURL      string
	ErpType       string
	Status        Status
	TokenHash     string
	LastHeartbeat time.Time
}

// NewRegistration creates an online registration. tokenHash must already be
// a one-way hash; plaintext tokens are never stored.
func NewRegistration(vendorID uuid.UUID, agentURL, erpType, tokenHash string) (*Registration, error) {
	if vendorID == uuid.Nil {
		return nil, fmt.Errorf("%w: vendor id is required", shared.ErrInvalidInput)
	}
	if agentURL == "" {
		return nil, fmt.Errorf("%w: agent url is required", shared.ErrInvalidInput)
	}
	if tokenHash == "" {
		return nil, fmt.Errorf("%w: token hash is required", shared.ErrInvalidInput)
	}
	return &Registration{
		BaseEntity:    shared.NewBaseEntity(),
		VendorID:      vendorID,
		AgentURL:      agentURL,
		ErpType:       erpType,
		Status:        StatusOnline,
		TokenHash:     tokenHash,
		LastHeartbeat: time.Now(),
	}, nil
}

// DeriveStatus computes the status from the last heartbeat at a given instant.
func (r *Registration) DeriveStatus(now time.Time) Status {
	elapsed := now.Sub(r.LastHeartbeat)
	switch {
	case elapsed < DegradedAfter:
		return StatusOnline
	case elapsed < OfflineAfter:
		return StatusDegraded
	default:
		return StatusOffline
	}
}

// Heartbeat records a fresh heartbeat, resetting status to online regardless
// of the prior state.
func (r *Registration) Heartbeat(now time.Time) {
	r.LastHeartbeat = now
	r.Status = StatusOnline
	r.Touch()
}

// Rotate replaces the endpoint, ERP type and token hash on re-registration.
func (r *Registration) Rotate(agentURL, erpType, tokenHash string) {
	r.AgentURL = agentURL
	r.ErpType = erpType
	r.TokenHash = tokenHash
	r.Status = StatusOnline
	r.LastHeartbeat = time.Now()
	r.Touch()
}

// ---------------------------------------------------------------------------
// Repository
// ---------------------------------------------------------------------------

// Repository persists agent registrations.
type Repository interface {
	// Save creates or updates a registration (upsert by vendor_id)
	Save(ctx context.Context, reg *Registration) error
	// FindByVendor finds the registration for a vendor
	FindByVendor(ctx context.Context, vendorID uuid.UUID) (*Registration, error)
	// FindAll returns every registration
	FindAll(ctx context.Context) ([]Registration, error)
	// UpdateHeartbeat stores a heartbeat timestamp and resets status
	UpdateHeartbeat(ctx context.Context, vendorID uuid.UUID, at time.Time) error
	// UpdateStatus writes a derived status (health sweep write-through)
	UpdateStatus(ctx context.Context, vendorID uuid.UUID, status Status) error
	// Delete removes a registration (admin deregistration)
	Delete(ctx context.Context, vendorID uuid.UUID) error
}
