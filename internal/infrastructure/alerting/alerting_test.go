package alerting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restosuite/backend/internal/infrastructure/config"
)

func TestWebhookSink_Notify(t *testing.T) {
	ctx := context.Background()

	t.Run("posts alert as JSON", func(t *testing.T) {
		var got Alert
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		sink := NewWebhookSink(config.AlertingConfig{
			WebhookURL:     server.URL,
			WebhookTimeout: 5 * time.Second,
		}, nil)

		sink.Notify(ctx, Alert{
			Severity: SeverityWarning,
			Title:    "DLQ backlog",
			Message:  "12 unresolved entries",
			Details:  map[string]any{"pending": 12},
		})

		assert.Equal(t, SeverityWarning, got.Severity)
		assert.Equal(t, "DLQ backlog", got.Title)
		assert.False(t, got.At.IsZero(), "timestamp is filled in when omitted")
	})

	t.Run("never panics when the endpoint is unreachable", func(t *testing.T) {
		sink := NewWebhookSink(config.AlertingConfig{
			WebhookURL:     "http://127.0.0.1:1", // nothing listens here
			WebhookTimeout: 100 * time.Millisecond,
		}, nil)

		assert.NotPanics(t, func() {
			sink.Notify(ctx, Alert{Severity: SeverityCritical, Title: "agent offline"})
		})
	})

	t.Run("log-only when no webhook configured", func(t *testing.T) {
		sink := NewWebhookSink(config.AlertingConfig{WebhookTimeout: time.Second}, nil)

		assert.NotPanics(t, func() {
			sink.Notify(ctx, Alert{Severity: SeverityInfo, Title: "reconciliation complete"})
		})
	})

	t.Run("swallows non-success webhook responses", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusServiceUnavailable)
		}))
		defer server.Close()

		sink := NewWebhookSink(config.AlertingConfig{
			WebhookURL:     server.URL,
			WebhookTimeout: time.Second,
		}, nil)

		assert.NotPanics(t, func() {
			sink.Notify(ctx, Alert{Severity: SeverityWarning, Title: "drift detected"})
		})
	})
}
