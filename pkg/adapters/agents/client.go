package agents

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/aretw0/triage/pkg/domain"
	"github.com/aretw0/triage/pkg/ports"
	"github.com/mitchellh/mapstructure"
)

// Roles name the agent behind each port on the transport.
const (
	RoleReasoner       = "reasoner"
	RoleSafetyReviewer = "safety_reviewer"
	RoleSummarizer     = "summarizer"
	RoleVerifier       = "verifier"
	RoleEvidence       = "evidence"
)

// Transport delivers one request to the agent serving role and returns its
// JSON object output.
type Transport interface {
	Call(ctx context.Context, role string, input any) (map[string]any, error)
}

// Client implements the advisory ports over a Transport.
type Client struct {
	transport Transport
	version   string
}

var (
	_ ports.Reasoner            = (*Client)(nil)
	_ ports.SafetyReviewer      = (*Client)(nil)
	_ ports.Summarizer          = (*Client)(nil)
	_ ports.Verifier            = (*Client)(nil)
	_ ports.EvidenceSynthesizer = (*Client)(nil)
)

// NewClient creates a client. version is recorded in the audit trail.
func NewClient(t Transport, version string) *Client {
	return &Client{transport: t, version: version}
}

// Version implements ports.Versioned.
func (c *Client) Version() string { return c.version }

func (c *Client) Reason(ctx context.Context, req ports.ReasoningRequest) (domain.ReasoningResult, error) {
	return call[domain.ReasoningResult](ctx, c.transport, RoleReasoner, req)
}

func (c *Client) Review(ctx context.Context, req ports.SafetyReviewRequest) (domain.SafetyReview, error) {
	return call[domain.SafetyReview](ctx, c.transport, RoleSafetyReviewer, req)
}

func (c *Client) Summarize(ctx context.Context, req ports.SummaryRequest) (domain.DoctorSummary, error) {
	return call[domain.DoctorSummary](ctx, c.transport, RoleSummarizer, req)
}

func (c *Client) Verify(ctx context.Context, req ports.VerificationRequest) (domain.VerificationReport, error) {
	return call[domain.VerificationReport](ctx, c.transport, RoleVerifier, req)
}

func (c *Client) Synthesize(ctx context.Context, req ports.EvidenceRequest) (domain.EvidenceSummary, error) {
	return call[domain.EvidenceSummary](ctx, c.transport, RoleEvidence, req)
}

func call[T any](ctx context.Context, t Transport, role string, input any) (T, error) {
	var out T
	raw, err := t.Call(ctx, role, input)
	if err != nil {
		return out, err
	}
	if err := Decode(raw, &out); err != nil {
		return out, &domain.CapabilityError{Port: role, Kind: domain.CapabilityInvalidOutput, Err: err}
	}
	return out, nil
}

var enumTypes = map[reflect.Type]bool{
	reflect.TypeOf(domain.Approval("")):  true,
	reflect.TypeOf(domain.RiskLevel("")): true,
	reflect.TypeOf(domain.Verdict("")):   true,
}

// normalizeEnums lowercases enum values, so "APPROVE" decodes as approve.
func normalizeEnums(from, to reflect.Type, data any) (any, error) {
	if s, ok := data.(string); ok && enumTypes[to] {
		return strings.ToLower(strings.TrimSpace(s)), nil
	}
	return data, nil
}

// Decode maps a loosely typed agent output onto out using json field names.
// Numbers sent as strings are accepted; enum values are case-insensitive.
// String values are sanitized with SanitizeText.
func Decode(raw map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.ComposeDecodeHookFunc(sanitizeStrings, normalizeEnums),
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("decode agent output: %w", err)
	}
	return nil
}
