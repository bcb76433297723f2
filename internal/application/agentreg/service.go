package agentreg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/restosuite/backend/internal/domain/agent"
	"github.com/restosuite/backend/internal/domain/shared"
)

// Service manages agent registrations: self-registration, heartbeats, token
// verification and the periodic health sweep. Tokens are stored bcrypt-hashed
// only; re-registration rotates the hash.
type Service struct {
	repo   agent.Repository
	logger *zap.Logger
}

// NewService creates an agent registry service
func NewService(repo agent.Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger}
}

// Register upserts the registration for a vendor. The plaintext token is
// hashed before it touches storage and never logged.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AgentResponse, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Token), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash agent token: %w", err)
	}

	reg, err := s.repo.FindByVendor(ctx, req.VendorID)
	switch {
	case err == nil:
		reg.Rotate(req.AgentURL, req.ErpType, string(hash))
	case errors.Is(err, agent.ErrAgentNotFound):
		reg, err = agent.NewRegistration(req.VendorID, req.AgentURL, req.ErpType, string(hash))
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	if err := s.repo.Save(ctx, reg); err != nil {
		return nil, fmt.Errorf("save registration: %w", err)
	}

	s.logger.Info("agent registered",
		zap.String("vendor_id", reg.VendorID.String()),
		zap.String("erp_type", reg.ErpType),
	)

	resp := toAgentResponse(reg, time.Now())
	return &resp, nil
}

// Heartbeat records a liveness signal. Any heartbeat resets the agent to
// online regardless of prior state.
func (s *Service) Heartbeat(ctx context.Context, vendorID uuid.UUID) error {
	return s.repo.UpdateHeartbeat(ctx, vendorID, time.Now())
}

// VerifyToken checks a presented plaintext token against the stored hash.
// Used to authenticate inbound agent calls (ingest, callbacks, heartbeats).
func (s *Service) VerifyToken(ctx context.Context, vendorID uuid.UUID, token string) error {
	reg, err := s.repo.FindByVendor(ctx, vendorID)
	if err != nil {
		return shared.ErrUnauthorized
	}
	if bcrypt.CompareHashAndPassword([]byte(reg.TokenHash), []byte(token)) != nil {
		return shared.ErrUnauthorized
	}
	return nil
}

// Get returns one registration with its derived status.
func (s *Service) Get(ctx context.Context, vendorID uuid.UUID) (*AgentResponse, error) {
	reg, err := s.repo.FindByVendor(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	resp := toAgentResponse(reg, time.Now())
	return &resp, nil
}

// List returns every registration with derived statuses.
func (s *Service) List(ctx context.Context) ([]AgentResponse, error) {
	regs, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	responses := make([]AgentResponse, len(regs))
	for i := range regs {
		responses[i] = toAgentResponse(&regs[i], now)
	}
	return responses, nil
}

// Deregister removes a registration (admin operation).
func (s *Service) Deregister(ctx context.Context, vendorID uuid.UUID) error {
	return s.repo.Delete(ctx, vendorID)
}

// SweepHealth recomputes every agent's status from its last heartbeat and
// writes through the denormalized status column. Returns the vendors whose
// agents just went offline so the caller can alert on them.
func (s *Service) SweepHealth(ctx context.Context) ([]uuid.UUID, error) {
	regs, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var wentOffline []uuid.UUID
	for i := range regs {
		reg := &regs[i]
		derived := reg.DeriveStatus(now)
		if derived == reg.Status {
			continue
		}

		if err := s.repo.UpdateStatus(ctx, reg.VendorID, derived); err != nil {
			s.logger.Error("failed to write agent status",
				zap.String("vendor_id", reg.VendorID.String()), zap.Error(err))
			continue
		}

		s.logger.Warn("agent status changed",
			zap.String("vendor_id", reg.VendorID.String()),
			zap.String("from", string(reg.Status)),
			zap.String("to", string(derived)),
			zap.Time("last_heartbeat", reg.LastHeartbeat),
		)
		if derived == agent.StatusOffline {
			wentOffline = append(wentOffline, reg.VendorID)
		}
	}
	return wentOffline, nil
}
