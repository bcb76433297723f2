package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/restosuite/backend/internal/application/agentreg"
	"github.com/restosuite/backend/internal/application/ingest"
	"github.com/restosuite/backend/internal/application/mappingsvc"
	"github.com/restosuite/backend/internal/application/reconcile"
	"github.com/restosuite/backend/internal/application/syncjob"
	"github.com/restosuite/backend/internal/infrastructure/agentclient"
	"github.com/restosuite/backend/internal/infrastructure/alerting"
	"github.com/restosuite/backend/internal/infrastructure/auth"
	"github.com/restosuite/backend/internal/infrastructure/breaker"
	"github.com/restosuite/backend/internal/infrastructure/cache"
	"github.com/restosuite/backend/internal/infrastructure/config"
	"github.com/restosuite/backend/internal/infrastructure/logger"
	"github.com/restosuite/backend/internal/infrastructure/persistence"
	"github.com/restosuite/backend/internal/infrastructure/queue"
	"github.com/restosuite/backend/internal/infrastructure/scheduler"
	"github.com/restosuite/backend/internal/infrastructure/storage"
	"github.com/restosuite/backend/internal/infrastructure/telemetry"
	"github.com/restosuite/backend/internal/interfaces/http/handler"
	"github.com/restosuite/backend/internal/interfaces/http/middleware"
	"github.com/restosuite/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting ERP sync backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Telemetry providers (no-op when disabled)
	ctx := context.Background()
	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	meterProvider, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	metrics, err := telemetry.NewMetrics()
	if err != nil {
		log.Fatal("Failed to create metric instruments", zap.Error(err))
	}

	// Database connection with zap-backed GORM logger
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	db, err := persistence.NewDatabaseWithGormLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		if err := db.EnableTracing(); err != nil {
			log.Warn("Failed to enable database tracing", zap.Error(err))
		}
	}
	log.Info("Database connected successfully")

	// Repositories
	itemRepo := persistence.NewGormItemRepository(db.DB)
	stockRepo := persistence.NewGormStockRepository(db.DB)
	warehouseRepo := persistence.NewGormWarehouseRepository(db.DB)
	mappingRepo := persistence.NewGormMappingRepository(db.DB)
	agentRepo := persistence.NewGormAgentRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	jobRepo := persistence.NewGormSyncJobRepository(db.DB)
	dlqRepo := persistence.NewGormDeadLetterRepository(db.DB)
	eventRepo := persistence.NewGormReconciliationEventRepository(db.DB)

	// Caches and idempotency store
	mappingCache := cache.NewMappingCache()
	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log)).CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}

	// Outbound agent gateway behind per-vendor circuit breakers
	jwtService := auth.NewJWTService(cfg.JWT)
	breakers := breaker.NewRegistry(cfg.Breaker, log)
	gateway := agentclient.NewHTTPGateway(cfg.Agent, breakers, jwtService, log)

	// Application services
	mappingService := mappingsvc.NewService(mappingRepo, mappingCache, log)
	resolver := mappingsvc.NewCachedResolver(mappingRepo, mappingCache)
	ingestService := ingest.NewService(itemRepo, stockRepo, warehouseRepo, resolver, cfg.Ingest, log)
	agentService := agentreg.NewService(agentRepo, log)
	jobService := syncjob.NewService(jobRepo, orderRepo, dlqRepo, idempotencyStore, cfg.Queue, log)

	alerts := alerting.NewWebhookSink(cfg.Alerting, log)
	reconcileService := reconcile.NewService(itemRepo, agentRepo, gateway, eventRepo, ingestService, alerts, cfg.Reconcile, log)

	// Background job processor
	if cfg.Queue.Enabled {
		processor := queue.NewProcessor(jobRepo, agentRepo, orderRepo, dlqRepo, gateway, cfg.Queue, log)
		if err := processor.Start(ctx); err != nil {
			log.Fatal("Failed to start job processor", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := processor.Stop(stopCtx); err != nil {
				log.Error("Error stopping job processor", zap.Error(err))
			}
		}()
		log.Info("Job processor started",
			zap.Int("batch_size", cfg.Queue.BatchSize),
			zap.Duration("poll_interval", cfg.Queue.PollInterval),
		)
	}

	// Scheduled tasks: reconciliation, health sweep, DLQ alerting, purges
	if cfg.Scheduler.Enabled {
		archiver, err := storage.NewArchiver(ctx, cfg.Archive, eventRepo, log)
		if err != nil {
			log.Fatal("Failed to create event archiver", zap.Error(err))
		}
		sched := scheduler.NewScheduler(
			reconcileService,
			agentService,
			jobRepo,
			dlqRepo,
			eventRepo,
			archiver,
			alerts,
			cfg.Scheduler,
			cfg.Reconcile.EventRetention,
			log,
		)
		if err := sched.Start(); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := sched.Stop(stopCtx); err != nil {
				log.Error("Error stopping scheduler", zap.Error(err))
			}
		}()
		log.Info("Scheduler started",
			zap.String("reconcile_schedule", cfg.Scheduler.ReconcileSchedule),
			zap.String("health_sweep_schedule", cfg.Scheduler.HealthSweepSchedule),
		)
	}

	// HTTP handlers
	syncHandler := handler.NewSyncHandler(ingestService, metrics)
	agentHandler := handler.NewAgentHandler(agentService)
	mappingHandler := handler.NewMappingHandler(mappingService)
	orderHandler := handler.NewOrderHandler(jobService, metrics)
	deadLetterHandler := handler.NewDeadLetterHandler(jobService)
	reconciliationHandler := handler.NewReconciliationHandler(reconcileService)
	systemHandler := handler.NewSystemHandler(db.DB, breakers)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := router.New(router.Options{
		Config:    cfg.HTTP,
		Logger:    log,
		Metrics:   metrics,
		AgentAuth: middleware.AgentAuth(agentService),
		AdminAuth: middleware.AdminAuth(jwtService),
	})
	r.RegisterPublic(
		router.Func(systemHandler.RegisterPublicRoutes),
		router.Func(agentHandler.RegisterPublicRoutes),
	)
	r.RegisterAgent(
		router.Func(agentHandler.RegisterAgentRoutes),
		syncHandler,
		router.Func(orderHandler.RegisterAgentRoutes),
	)
	r.RegisterAdmin(
		agentHandler,
		mappingHandler,
		orderHandler,
		deadLetterHandler,
		reconciliationHandler,
		systemHandler,
	)
	engine := r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
