package agents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/triage/internal/logging"
	"github.com/aretw0/triage/pkg/domain"
)

// maxResponseBytes caps how much of an agent response is read.
const maxResponseBytes = 1 << 20

// Gateway is an HTTP Transport. Each role is served at
// POST {baseURL}/v1/agents/{role}.
type Gateway struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	logger  *slog.Logger
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithAPIKey sets the bearer token.
func WithAPIKey(key string) GatewayOption {
	return func(g *Gateway) {
		g.apiKey = key
	}
}

// WithModel names the model the gateway should use.
func WithModel(model string) GatewayOption {
	return func(g *Gateway) {
		g.model = model
	}
}

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) GatewayOption {
	return func(g *Gateway) {
		g.client = c
	}
}

// WithGatewayLogger sets the logger.
func WithGatewayLogger(logger *slog.Logger) GatewayOption {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// NewGateway creates a gateway transport.
func NewGateway(baseURL string, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 60 * time.Second},
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type gatewayRequest struct {
	Model string `json:"model,omitempty"`
	Role  string `json:"role"`
	Input any    `json:"input"`
}

// Call posts input to the role endpoint. Transport and HTTP failures are
// unavailable; an undecodable body is invalid output.
func (g *Gateway) Call(ctx context.Context, role string, input any) (map[string]any, error) {
	body, err := json.Marshal(gatewayRequest{Model: g.model, Role: role, Input: input})
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", role, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/agents/"+role, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, &domain.CapabilityError{Port: role, Kind: domain.CapabilityUnavailable, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &domain.CapabilityError{Port: role, Kind: domain.CapabilityUnavailable, Err: err}
	}
	g.logger.Debug("agent gateway call", "role", role, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.CapabilityError{
			Port: role,
			Kind: domain.CapabilityUnavailable,
			Err:  fmt.Errorf("gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data))),
		}
	}

	var envelope map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&envelope); err != nil {
		return nil, &domain.CapabilityError{Port: role, Kind: domain.CapabilityInvalidOutput, Err: err}
	}
	if out, ok := envelope["output"].(map[string]any); ok {
		return out, nil
	}
	return envelope, nil
}
