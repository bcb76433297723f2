package agentclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/restosuite/backend/internal/domain/agent"
	"github.com/restosuite/backend/internal/domain/catalog"
	"github.com/restosuite/backend/internal/domain/shared"
	"github.com/restosuite/backend/internal/infrastructure/breaker"
	"github.com/restosuite/backend/internal/infrastructure/config"
)

// TokenMinter issues short-lived bearer tokens for outbound agent calls.
// Agents validate these against the platform's signing key; the agent's own
// token is only ever stored hashed and is never replayed outbound.
type TokenMinter interface {
	MintAgentToken(vendorID uuid.UUID) (string, error)
}

// HTTPGateway is the HTTP implementation of the agent gateway. Every call
// goes through the per-(vendor, API type) circuit breaker, carries a bearer
// token and a correlation ID, and is bounded by the configured call timeout.
type HTTPGateway struct {
	client   *http.Client
	breakers *breaker.Registry
	tokens   TokenMinter
	cfg      config.AgentConfig
	logger   *zap.Logger
}

// NewHTTPGateway creates an agent gateway.
func NewHTTPGateway(cfg config.AgentConfig, breakers *breaker.Registry, tokens TokenMinter, logger *zap.Logger) *HTTPGateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPGateway{
		client: &http.Client{
			Timeout: cfg.CallTimeout,
		},
		breakers: breakers,
		tokens:   tokens,
		cfg:      cfg,
		logger:   logger,
	}
}

// PushOrder delivers an order to the ERP through the vendor's agent.
func (g *HTTPGateway) PushOrder(ctx context.Context, reg *agent.Registration, push agent.OrderPush) (*agent.OrderPushResult, error) {
	body, err := g.call(ctx, reg, agent.APITypeOrders, "/api/v1/orders", push, push.CorrelationID)
	if err != nil {
		return nil, err
	}

	var result agent.OrderPushResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode order push response: %w", err)
	}
	return &result, nil
}

// Checksum asks the agent for the ERP-side checksum of a key range.
func (g *HTTPGateway) Checksum(ctx context.Context, reg *agent.Registration, rng catalog.KeyRange) (*agent.ChecksumResult, error) {
	body, err := g.call(ctx, reg, agent.APITypeChecksums, "/api/v1/items/checksum", checksumRequest{From: rng.From, To: rng.To}, "")
	if err != nil {
		return nil, err
	}

	var result agent.ChecksumResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode checksum response: %w", err)
	}
	return &result, nil
}

// FetchItems fetches ERP-side item data for a key range.
func (g *HTTPGateway) FetchItems(ctx context.Context, reg *agent.Registration, rng catalog.KeyRange) ([]agent.ErpItem, error) {
	body, err := g.call(ctx, reg, agent.APITypeItems, "/api/v1/items/fetch", checksumRequest{From: rng.From, To: rng.To}, "")
	if err != nil {
		return nil, err
	}

	var result struct {
		Items []agent.ErpItem `json:"items"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode items response: %w", err)
	}
	return result.Items, nil
}

type checksumRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// call performs one breaker-guarded POST against the agent. The response body
// is returned for 2xx; 4xx maps to shared.ErrAgentRejected (not retryable)
// and everything else to shared.ErrAgentUnavailable (retryable).
func (g *HTTPGateway) call(ctx context.Context, reg *agent.Registration, apiType agent.APIType, path string, payload any, correlationID string) ([]byte, error) {
	if correlationID == "" {
		correlationID = uuid.New().String()
	}

	requestBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode agent request: %w", err)
	}

	token, err := g.tokens.MintAgentToken(reg.VendorID)
	if err != nil {
		return nil, fmt.Errorf("mint agent token: %w", err)
	}

	url := strings.TrimRight(reg.AgentURL, "/") + path

	return g.breakers.Execute(reg.VendorID, apiType, func() ([]byte, error) {
		callCtx, cancel := context.WithTimeout(ctx, g.cfg.CallTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(callCtx, http.MethodPost, url, bytes.NewReader(requestBody))
		if err != nil {
			return nil, fmt.Errorf("build agent request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("X-Correlation-ID", correlationID)

		resp, err := g.client.Do(req)
		if err != nil {
			g.logger.Warn("agent call failed",
				zap.String("vendor_id", reg.VendorID.String()),
				zap.String("api_type", string(apiType)),
				zap.String("correlation_id", correlationID),
				zap.Error(err),
			)
			return nil, fmt.Errorf("%w: %v", shared.ErrAgentUnavailable, err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		if err != nil {
			return nil, fmt.Errorf("%w: read response: %v", shared.ErrAgentUnavailable, err)
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return body, nil
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			g.logger.Warn("agent rejected request",
				zap.String("vendor_id", reg.VendorID.String()),
				zap.String("api_type", string(apiType)),
				zap.String("correlation_id", correlationID),
				zap.Int("status", resp.StatusCode),
				zap.ByteString("body", truncate(body, 512)),
			)
			return nil, fmt.Errorf("%w: status %d", shared.ErrAgentRejected, resp.StatusCode)
		default:
			return nil, fmt.Errorf("%w: status %d", shared.ErrAgentUnavailable, resp.StatusCode)
		}
	})
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}

// Ensure HTTPGateway implements the gateway port
var _ agent.Gateway = (*HTTPGateway)(nil)
