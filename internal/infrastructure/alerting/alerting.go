package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/restosuite/backend/internal/infrastructure/config"
)

// Severity grades an alert.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Alert is one operational notification.
type Alert struct {
	Severity Severity       `json:"severity"`
	Title    string         `json:"title"`
	Message  string         `json:"message"`
	Details  map[string]any `json:"details,omitempty"`
	At       time.Time      `json:"at"`
}

// Sink delivers alerts. Implementations must never block scheduled tasks:
// Notify has no error return, delivery failures are logged and dropped.
type Sink interface {
	Notify(ctx context.Context, alert Alert)
}

// ---------------------------------------------------------------------------
// Webhook sink
// ---------------------------------------------------------------------------

// WebhookSink POSTs alerts as JSON to a configured URL. Every alert is also
// written to the structured log, so operators keep a trail even when the
// webhook endpoint is down.
type WebhookSink struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewWebhookSink creates a webhook sink. An empty URL yields a log-only sink.
func NewWebhookSink(cfg config.AlertingConfig, logger *zap.Logger) *WebhookSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookSink{
		url: cfg.WebhookURL,
		client: &http.Client{
			Timeout: cfg.WebhookTimeout,
		},
		logger: logger,
	}
}

// Notify logs the alert and, when a webhook URL is configured, posts it.
func (s *WebhookSink) Notify(ctx context.Context, alert Alert) {
	if alert.At.IsZero() {
		alert.At = time.Now()
	}

	fields := []zap.Field{
		zap.String("severity", string(alert.Severity)),
		zap.String("title", alert.Title),
		zap.String("message", alert.Message),
		zap.Any("details", alert.Details),
	}
	switch alert.Severity {
	case SeverityCritical:
		s.logger.Error("alert", fields...)
	case SeverityWarning:
		s.logger.Warn("alert", fields...)
	default:
		s.logger.Info("alert", fields...)
	}

	if s.url == "" {
		return
	}

	body, err := json.Marshal(alert)
	if err != nil {
		s.logger.Error("failed to encode alert", zap.Error(err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		s.logger.Error("failed to build alert request", zap.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error("alert webhook delivery failed", zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		s.logger.Error("alert webhook returned non-success status",
			zap.Int("status", resp.StatusCode))
	}
}

var _ Sink = (*WebhookSink)(nil)
