package logger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"

	"github.com/restosuite/backend/internal/infrastructure/config"
)

func TestNew(t *testing.T) {
	t.Run("JSONFormat", func(t *testing.T) {
		log, err := New(config.LogConfig{Level: "info", Format: "json", Output: "stdout"})
		require.NoError(t, err)
		require.NotNil(t, log)
		assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
		assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("ConsoleFormat", func(t *testing.T) {
		log, err := New(config.LogConfig{Level: "debug", Format: "console", Output: "stderr"})
		require.NoError(t, err)
		assert.True(t, log.Core().Enabled(zapcore.DebugLevel))
	})

	t.Run("UnknownLevelDefaultsToInfo", func(t *testing.T) {
		log, err := New(config.LogConfig{Level: "verbose", Format: "json", Output: "stdout"})
		require.NoError(t, err)
		assert.True(t, log.Core().Enabled(zapcore.InfoLevel))
		assert.False(t, log.Core().Enabled(zapcore.DebugLevel))
	})
}

func TestContextScoping(t *testing.T) {
	t.Run("RoundTripsLogger", func(t *testing.T) {
		log := zap.NewNop()
		ctx := WithContext(context.Background(), log)
		assert.Same(t, log, FromContext(ctx))
	})

	t.Run("MissingLoggerIsNop", func(t *testing.T) {
		assert.NotNil(t, FromContext(context.Background()))
	})

	t.Run("CorrelationID", func(t *testing.T) {
		core, logs := observer.New(zapcore.InfoLevel)
		log := zap.New(core)

		ctx, enriched := WithCorrelationID(context.Background(), log, "corr-123")
		assert.Equal(t, "corr-123", GetCorrelationID(ctx))

		enriched.Info("hello")
		require.Equal(t, 1, logs.Len())
		assert.Equal(t, "corr-123", logs.All()[0].ContextMap()["correlation_id"])
	})

	t.Run("VendorID", func(t *testing.T) {
		ctx, _ := WithVendorID(context.Background(), zap.NewNop(), "vendor-1")
		assert.Equal(t, "vendor-1", GetVendorID(ctx))
	})

	t.Run("EmptyContextAccessors", func(t *testing.T) {
		assert.Empty(t, GetCorrelationID(context.Background()))
		assert.Empty(t, GetVendorID(context.Background()))
	})
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("LogsRequest", func(t *testing.T) {
		core, logs := observer.New(zapcore.InfoLevel)
		log := zap.New(core)

		router := gin.New()
		router.Use(GinMiddleware(log))
		router.GET("/ping", func(c *gin.Context) {
			// Handlers see the request-scoped logger
			assert.NotNil(t, GetGinLogger(c))
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping?x=1", nil)
		router.ServeHTTP(w, req)

		require.Equal(t, 1, logs.Len())
		entry := logs.All()[0]
		assert.Equal(t, "HTTP Request", entry.Message)
		assert.Equal(t, zapcore.InfoLevel, entry.Level)
		fields := entry.ContextMap()
		assert.Equal(t, "/ping", fields["path"])
		assert.EqualValues(t, http.StatusOK, fields["status"])
		assert.Equal(t, "x=1", fields["query"])
	})

	t.Run("ServerErrorsLogAtError", func(t *testing.T) {
		core, logs := observer.New(zapcore.InfoLevel)
		log := zap.New(core)

		router := gin.New()
		router.Use(GinMiddleware(log))
		router.GET("/boom", func(c *gin.Context) {
			c.Status(http.StatusInternalServerError)
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

		require.Equal(t, 1, logs.Len())
		assert.Equal(t, zapcore.ErrorLevel, logs.All()[0].Level)
	})

	t.Run("RecoveryCatchesPanics", func(t *testing.T) {
		core, logs := observer.New(zapcore.ErrorLevel)
		log := zap.New(core)

		router := gin.New()
		router.Use(Recovery(log))
		router.GET("/panic", func(c *gin.Context) {
			panic("kaboom")
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		require.Equal(t, 1, logs.Len())
		assert.Equal(t, "Panic recovered", logs.All()[0].Message)
	})
}

func TestGormLogger(t *testing.T) {
	t.Run("MapsLevels", func(t *testing.T) {
		assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
		assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
		assert.Equal(t, gormlogger.Warn, MapGormLogLevel("warn"))
		assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
		assert.Equal(t, gormlogger.Warn, MapGormLogLevel("anything"))
	})

	t.Run("TraceIncludesCorrelationID", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		log := zap.New(core)
		gl := NewGormLogger(log, gormlogger.Info)

		ctx, _ := WithCorrelationID(context.Background(), log, "corr-9")
		gl.Trace(ctx, time.Now(), func() (string, int64) {
			return "SELECT 1", 1
		}, nil)

		require.Equal(t, 1, logs.Len())
		assert.Equal(t, "corr-9", logs.All()[0].ContextMap()["correlation_id"])
	})

	t.Run("SilentSkipsTrace", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		gl := NewGormLogger(zap.New(core), gormlogger.Silent)

		gl.Trace(context.Background(), time.Now(), func() (string, int64) {
			return "SELECT 1", 1
		}, nil)
		assert.Zero(t, logs.Len())
	})
}
