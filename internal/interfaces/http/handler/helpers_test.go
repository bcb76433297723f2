package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/restosuite/backend/internal/application/agentreg"
	"github.com/restosuite/backend/internal/application/ingest"
	"github.com/restosuite/backend/internal/application/mappingsvc"
	"github.com/restosuite/backend/internal/application/syncjob"
	"github.com/restosuite/backend/internal/domain/mapping"
	"github.com/restosuite/backend/internal/infrastructure/auth"
	"github.com/restosuite/backend/internal/infrastructure/cache"
	"github.com/restosuite/backend/internal/infrastructure/config"
	"github.com/restosuite/backend/internal/infrastructure/persistence"
	"github.com/restosuite/backend/internal/infrastructure/persistence/models"
	"github.com/restosuite/backend/internal/interfaces/http/middleware"
)

const testAgentToken = "agent-token-0123456789abcdef"

// apiFixture wires real services against an in-memory database behind a gin
// engine, so handler tests exercise the full request path.
type apiFixture struct {
	db       *gorm.DB
	engine   *gin.Engine
	jwt      *auth.JWTService
	agents   *agentreg.Service
	ingest   *ingest.Service
	mappings *mappingsvc.Service
	jobs     *syncjob.Service
	vendorID uuid.UUID
}

func setupAPI(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.SyncedItemModel{},
		&models.SyncedStockModel{},
		&models.SyncedWarehouseModel{},
		&models.ErpCodeMappingModel{},
		&models.AgentRegistrationModel{},
		&models.SyncJobModel{},
		&models.DeadLetterModel{},
		&models.OrderModel{},
		&models.ReconciliationEventModel{},
	))

	mappingRepo := persistence.NewGormMappingRepository(db)
	resolver := mappingsvc.NewCachedResolver(mappingRepo, cache.NewMappingCache())

	f := &apiFixture{
		db:       db,
		jwt:      auth.NewJWTService(config.JWTConfig{Secret: "handler-test-secret-0123456789abcdef", Expiration: time.Hour, Issuer: "erp-sync"}),
		agents:   agentreg.NewService(persistence.NewGormAgentRepository(db), nil),
		mappings: mappingsvc.NewService(mappingRepo, cache.NewMappingCache(), nil),
		vendorID: uuid.New(),
	}
	f.ingest = ingest.NewService(
		persistence.NewGormItemRepository(db),
		persistence.NewGormStockRepository(db),
		persistence.NewGormWarehouseRepository(db),
		resolver,
		config.IngestConfig{MaxItemsPerBatch: 500, MaxStockPerBatch: 5000, SubChunkSize: 50},
		nil,
	)
	f.jobs = syncjob.NewService(
		persistence.NewGormSyncJobRepository(db),
		persistence.NewGormOrderRepository(db),
		persistence.NewGormDeadLetterRepository(db),
		cache.NewInMemoryIdempotencyStore(),
		config.QueueConfig{},
		nil,
	)

	// Register the test vendor's agent so agent-authenticated calls work.
	ctx := context.Background()
	_, err = f.agents.Register(ctx, agentreg.RegisterRequest{
		VendorID: f.vendorID,
		AgentURL: "http://agent.test",
		ErpType:  "sage100",
		Token:    testAgentToken,
	})
	require.NoError(t, err)

	// Seed the mapping vocabulary ingest relies on.
	for _, seed := range []struct {
		typ mapping.Type
		erp string
		to  string
	}{
		{mapping.TypeUnit, "L", "liter"},
		{mapping.TypeVat, "V55", "vat-5.5"},
	} {
		m, err := mapping.NewErpCodeMapping(f.vendorID, seed.typ, seed.erp, seed.to, "")
		require.NoError(t, err)
		require.NoError(t, mappingRepo.Save(ctx, m))
	}

	f.engine = gin.New()
	f.engine.Use(middleware.RequestID())

	api := f.engine.Group("/api/v1")

	sysHandler := NewSystemHandler(db, nil)
	agentHandler := NewAgentHandler(f.agents)
	sysHandler.RegisterPublicRoutes(api)
	agentHandler.RegisterPublicRoutes(api)

	agentGroup := api.Group("/agent", middleware.AgentAuth(f.agents))
	NewSyncHandler(f.ingest, nil).RegisterRoutes(agentGroup)
	agentHandler.RegisterAgentRoutes(agentGroup)
	NewOrderHandler(f.jobs, nil).RegisterAgentRoutes(agentGroup)

	adminGroup := api.Group("", middleware.AdminAuth(f.jwt))
	agentHandler.RegisterRoutes(adminGroup)
	NewMappingHandler(f.mappings).RegisterRoutes(adminGroup)
	NewOrderHandler(f.jobs, nil).RegisterRoutes(adminGroup)
	NewDeadLetterHandler(f.jobs).RegisterRoutes(adminGroup)

	return f
}

func (f *apiFixture) adminToken(t *testing.T) string {
	t.Helper()
	token, _, err := f.jwt.IssueAdminToken("ops@restosuite.test")
	require.NoError(t, err)
	return token
}

type requestOpts struct {
	admin bool
	agent bool
}

func (f *apiFixture) do(t *testing.T, method, path string, body any, opts requestOpts) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if opts.admin {
		req.Header.Set("Authorization", "Bearer "+f.adminToken(t))
	}
	if opts.agent {
		req.Header.Set("Authorization", "Bearer "+testAgentToken)
		req.Header.Set("X-Vendor-ID", f.vendorID.String())
	}

	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

// rawRequest builds a request and recorder for tests that set headers by
// hand.
func rawRequest(t *testing.T, method, path string) (*http.Request, *httptest.ResponseRecorder) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Content-Type", "application/json")
	return req, httptest.NewRecorder()
}

// envelope mirrors the response wrapper for assertions.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id"`
	} `json:"error"`
	Meta *struct {
		Page     int   `json:"page"`
		PageSize int   `json:"page_size"`
		Total    int64 `json:"total"`
	} `json:"meta"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func decodeData[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	env := decodeEnvelope(t, rec)
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}
