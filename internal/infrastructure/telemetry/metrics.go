package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"

	"github.com/restosuite/backend/internal/infrastructure/config"
)

const meterName = "erp-sync"

// MeterProvider wraps the OpenTelemetry meter provider lifecycle.
type MeterProvider struct {
	provider *sdkmetric.MeterProvider
}

// NewMeterProvider configures the global meter provider from configuration.
func NewMeterProvider(ctx context.Context, cfg config.TelemetryConfig, logger *zap.Logger) (*MeterProvider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Enabled {
		logger.Info("telemetry disabled, using no-op meter provider")
		return &MeterProvider{}, nil
	}

	exporterOpts := []otlpmetricgrpc.Option{
		otlpmetricgrpc.WithEndpoint(cfg.CollectorEndpoint),
	}
	if cfg.Insecure {
		exporterOpts = append(exporterOpts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, exporterOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
	}

	res, err := buildResource(cfg.ServiceName)
	if err != nil {
		return nil, err
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(provider)

	logger.Info("meter provider initialized",
		zap.String("collector_endpoint", cfg.CollectorEndpoint))
	return &MeterProvider{provider: provider}, nil
}

// Shutdown flushes and stops the provider.
func (mp *MeterProvider) Shutdown(ctx context.Context) error {
	if mp.provider == nil {
		return nil
	}
	return mp.provider.Shutdown(ctx)
}

// Metrics holds the sync pipeline's instruments. All record methods are
// nil-safe so callers never need to guard.
type Metrics struct {
	requestCount    metric.Int64Counter
	requestDuration metric.Float64Histogram
	ingestRecords   metric.Int64Counter
	jobCallbacks    metric.Int64Counter
	deadLetters     metric.Int64Counter
}

// NewMetrics creates the pipeline instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.GetMeterProvider().Meter(meterName)

	requestCount, err := meter.Int64Counter("http.server.request.count",
		metric.WithDescription("HTTP requests handled"))
	if err != nil {
		return nil, err
	}
	requestDuration, err := meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("HTTP request latency"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}
	ingestRecords, err := meter.Int64Counter("sync.ingest.records",
		metric.WithDescription("Ingested records by outcome"))
	if err != nil {
		return nil, err
	}
	jobCallbacks, err := meter.Int64Counter("sync.job.callbacks",
		metric.WithDescription("Agent callbacks by outcome"))
	if err != nil {
		return nil, err
	}
	deadLetters, err := meter.Int64Counter("sync.dead_letters",
		metric.WithDescription("Jobs escalated to the dead letter queue"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		requestCount:    requestCount,
		requestDuration: requestDuration,
		ingestRecords:   ingestRecords,
		jobCallbacks:    jobCallbacks,
		deadLetters:     deadLetters,
	}, nil
}

// RecordIngest records per-outcome ingest counts for one batch.
func (m *Metrics) RecordIngest(ctx context.Context, entity string, processed, skipped, failed int) {
	if m == nil {
		return
	}
	attrs := func(outcome string) metric.AddOption {
		return metric.WithAttributes(
			attribute.String("entity", entity),
			attribute.String("outcome", outcome),
		)
	}
	m.ingestRecords.Add(ctx, int64(processed), attrs("processed"))
	m.ingestRecords.Add(ctx, int64(skipped), attrs("skipped"))
	m.ingestRecords.Add(ctx, int64(failed), attrs("failed"))
}

// RecordCallback records one agent callback by outcome.
func (m *Metrics) RecordCallback(ctx context.Context, success bool) {
	if m == nil {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.jobCallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordDeadLetter records one dead-letter escalation.
func (m *Metrics) RecordDeadLetter(ctx context.Context) {
	if m == nil {
		return
	}
	m.deadLetters.Add(ctx, 1)
}

// GinMiddleware records request count and latency per route and status.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		attrs := metric.WithAttributes(
			attribute.String("http.route", route),
			attribute.String("http.method", c.Request.Method),
			attribute.Int("http.status_code", c.Writer.Status()),
		)
		m.requestCount.Add(c.Request.Context(), 1, attrs)
		m.requestDuration.Record(c.Request.Context(), float64(time.Since(start).Milliseconds()), attrs)
	}
}
