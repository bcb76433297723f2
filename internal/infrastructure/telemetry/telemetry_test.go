package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restosuite/backend/internal/infrastructure/config"
)

func TestNewTracerProvider_Disabled(t *testing.T) {
	tp, err := NewTracerProvider(context.Background(), config.TelemetryConfig{Enabled: false}, nil)
	require.NoError(t, err)
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestNewMeterProvider_Disabled(t *testing.T) {
	mp, err := NewMeterProvider(context.Background(), config.TelemetryConfig{Enabled: false}, nil)
	require.NoError(t, err)
	assert.NoError(t, mp.Shutdown(context.Background()))
}

func TestMetrics(t *testing.T) {
	ctx := context.Background()

	t.Run("NilReceiverIsSafe", func(t *testing.T) {
		var m *Metrics
		assert.NotPanics(t, func() {
			m.RecordIngest(ctx, "items", 3, 1, 0)
			m.RecordCallback(ctx, true)
			m.RecordDeadLetter(ctx)
		})
	})

	t.Run("RecordsOnNoopProvider", func(t *testing.T) {
		m, err := NewMetrics()
		require.NoError(t, err)
		assert.NotPanics(t, func() {
			m.RecordIngest(ctx, "stock", 10, 2, 1)
			m.RecordCallback(ctx, false)
			m.RecordDeadLetter(ctx)
		})
	})

	t.Run("GinMiddlewarePassesThrough", func(t *testing.T) {
		gin.SetMode(gin.TestMode)
		m, err := NewMetrics()
		require.NoError(t, err)

		router := gin.New()
		router.Use(m.GinMiddleware())
		router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
