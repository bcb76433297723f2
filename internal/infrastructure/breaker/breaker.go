package breaker

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/restosuite/backend/internal/domain/agent"
	"github.com/restosuite/backend/internal/domain/shared"
	"github.com/restosuite/backend/internal/infrastructure/config"
)

// Registry maintains one circuit breaker per (vendor, API type) pair so a
// failing ERP endpoint for one vendor never blocks calls to the others.
type Registry struct {
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker[[]byte]
	cfg      config.BreakerConfig
	logger   *zap.Logger
}

// NewRegistry creates an empty breaker registry.
func NewRegistry(cfg config.BreakerConfig, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		breakers: make(map[string]*gobreaker.CircuitBreaker[[]byte]),
		cfg:      cfg,
		logger:   logger,
	}
}

// key builds the registry key for a vendor/API pair.
func key(vendorID uuid.UUID, apiType agent.APIType) string {
	return vendorID.String() + ":" + string(apiType)
}

// Execute runs fn under the breaker for the given vendor and API type.
// When the breaker is open the call is rejected immediately with
// shared.ErrCircuitOpen and fn is never invoked.
func (r *Registry) Execute(vendorID uuid.UUID, apiType agent.APIType, fn func() ([]byte, error)) ([]byte, error) {
	cb := r.get(vendorID, apiType)

	result, err := cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %s %s", shared.ErrCircuitOpen, vendorID, apiType)
		}
		return nil, err
	}
	return result, nil
}

// State reports the current breaker state for a vendor/API pair. Pairs that
// have never executed a call report as closed.
func (r *Registry) State(vendorID uuid.UUID, apiType agent.APIType) gobreaker.State {
	r.mu.Lock()
	cb, ok := r.breakers[key(vendorID, apiType)]
	r.mu.Unlock()
	if !ok {
		return gobreaker.StateClosed
	}
	return cb.State()
}

// Reset forcibly closes the breaker for a vendor/API pair by discarding it.
// The next call will start from a fresh closed breaker. Used when an operator
// knows the downstream ERP has recovered and does not want to wait out the
// open timeout.
func (r *Registry) Reset(vendorID uuid.UUID, apiType agent.APIType) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key(vendorID, apiType)
	if _, ok := r.breakers[k]; ok {
		delete(r.breakers, k)
		r.logger.Info("circuit breaker force-reset",
			zap.String("vendor_id", vendorID.String()),
			zap.String("api_type", string(apiType)),
		)
	}
}

// Snapshot returns the state of every breaker currently tracked, keyed by
// "<vendorID>:<apiType>". Used by the system health endpoint.
func (r *Registry) Snapshot() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]string, len(r.breakers))
	for k, cb := range r.breakers {
		out[k] = cb.State().String()
	}
	return out
}

func (r *Registry) get(vendorID uuid.UUID, apiType agent.APIType) *gobreaker.CircuitBreaker[[]byte] {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := key(vendorID, apiType)
	if cb, ok := r.breakers[k]; ok {
		return cb
	}

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        k,
		MaxRequests: 1, // single probe in half-open state
		Timeout:     r.cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < r.cfg.MinCalls {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= r.cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			r.logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	r.breakers[k] = cb
	return cb
}
