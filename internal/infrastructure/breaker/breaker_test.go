package breaker

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restosuite/backend/internal/domain/agent"
	"github.com/restosuite/backend/internal/domain/shared"
	"github.com/restosuite/backend/internal/infrastructure/config"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	return NewRegistry(config.BreakerConfig{
		MinCalls:     5,
		FailureRatio: 0.5,
		OpenTimeout:  60 * time.Second,
	}, nil)
}

func TestRegistry_Execute(t *testing.T) {
	vendorID := uuid.New()

	t.Run("passes through successful calls", func(t *testing.T) {
		reg := newTestRegistry(t)

		result, err := reg.Execute(vendorID, agent.APITypeOrders, func() ([]byte, error) {
			return []byte(`{"ok":true}`), nil
		})
		require.NoError(t, err)
		assert.Equal(t, []byte(`{"ok":true}`), result)
		assert.Equal(t, gobreaker.StateClosed, reg.State(vendorID, agent.APITypeOrders))
	})

	t.Run("propagates call errors while closed", func(t *testing.T) {
		reg := newTestRegistry(t)
		callErr := errors.New("erp timeout")

		_, err := reg.Execute(vendorID, agent.APITypeOrders, func() ([]byte, error) {
			return nil, callErr
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, callErr)
		assert.NotErrorIs(t, err, shared.ErrCircuitOpen)
	})

	t.Run("opens after failure ratio reached over minimum calls", func(t *testing.T) {
		reg := newTestRegistry(t)
		callErr := errors.New("erp down")

		for i := 0; i < 5; i++ {
			_, err := reg.Execute(vendorID, agent.APITypeItems, func() ([]byte, error) {
				return nil, callErr
			})
			require.Error(t, err)
		}

		assert.Equal(t, gobreaker.StateOpen, reg.State(vendorID, agent.APITypeItems))

		// Calls are now rejected without invoking the function
		invoked := false
		_, err := reg.Execute(vendorID, agent.APITypeItems, func() ([]byte, error) {
			invoked = true
			return nil, nil
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, shared.ErrCircuitOpen)
		assert.False(t, invoked, "open breaker must short-circuit the call")
	})

	t.Run("stays closed under minimum call count", func(t *testing.T) {
		reg := newTestRegistry(t)
		callErr := errors.New("erp down")

		for i := 0; i < 4; i++ {
			reg.Execute(vendorID, agent.APITypeItems, func() ([]byte, error) {
				return nil, callErr
			})
		}

		assert.Equal(t, gobreaker.StateClosed, reg.State(vendorID, agent.APITypeItems))
	})

	t.Run("breakers are isolated per vendor and API type", func(t *testing.T) {
		reg := newTestRegistry(t)
		otherVendor := uuid.New()
		callErr := errors.New("erp down")

		for i := 0; i < 5; i++ {
			reg.Execute(vendorID, agent.APITypeOrders, func() ([]byte, error) {
				return nil, callErr
			})
		}

		assert.Equal(t, gobreaker.StateOpen, reg.State(vendorID, agent.APITypeOrders))
		assert.Equal(t, gobreaker.StateClosed, reg.State(vendorID, agent.APITypeItems))
		assert.Equal(t, gobreaker.StateClosed, reg.State(otherVendor, agent.APITypeOrders))

		// The healthy pair still serves calls
		_, err := reg.Execute(otherVendor, agent.APITypeOrders, func() ([]byte, error) {
			return []byte("ok"), nil
		})
		require.NoError(t, err)
	})
}

func TestRegistry_Reset(t *testing.T) {
	reg := newTestRegistry(t)
	vendorID := uuid.New()
	callErr := errors.New("erp down")

	for i := 0; i < 5; i++ {
		reg.Execute(vendorID, agent.APITypeOrders, func() ([]byte, error) {
			return nil, callErr
		})
	}
	require.Equal(t, gobreaker.StateOpen, reg.State(vendorID, agent.APITypeOrders))

	reg.Reset(vendorID, agent.APITypeOrders)

	assert.Equal(t, gobreaker.StateClosed, reg.State(vendorID, agent.APITypeOrders))

	result, err := reg.Execute(vendorID, agent.APITypeOrders, func() ([]byte, error) {
		return []byte("recovered"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("recovered"), result)
}

func TestRegistry_Snapshot(t *testing.T) {
	reg := newTestRegistry(t)
	vendorID := uuid.New()

	assert.Empty(t, reg.Snapshot())

	_, err := reg.Execute(vendorID, agent.APITypeChecksums, func() ([]byte, error) {
		return nil, nil
	})
	require.NoError(t, err)

	snap := reg.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "closed", snap[vendorID.String()+":checksums"])
}
