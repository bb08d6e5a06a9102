package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/triage"
	"github.com/aretw0/triage/internal/logging"
	"github.com/aretw0/triage/pkg/audit"
	"github.com/aretw0/triage/pkg/domain"
	"github.com/aretw0/triage/pkg/formulary"
	"github.com/aretw0/triage/pkg/orchestrator"
	"github.com/aretw0/triage/pkg/submission"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// FormularyURI is the resource listing the loaded formulary.
const FormularyURI = "triage://formulary"

// Service is the triage core as seen by the MCP server.
type Service interface {
	AssessAndPlan(p domain.PatientState) (triage.Plan, error)
	FollowUpPlan(p domain.PatientState, regimen *domain.ProposedRegimen) (domain.FollowUpPlan, error)
	Complete(ctx context.Context, req orchestrator.Request) (submission.Result, error)
	Bundle(ctx context.Context, id string) (*audit.Bundle, error)
	Formulary() *formulary.Set
}

// PatientArgs is the input of assess_and_plan.
type PatientArgs struct {
	Patient domain.PatientState `json:"patient" jsonschema:"required" jsonschema_description:"The patient state to assess"`
}

// CompleteArgs is the input of complete_assessment.
type CompleteArgs struct {
	ID      string              `json:"id,omitempty" jsonschema_description:"Assessment ID; resubmitting an ID replays its stored bundle"`
	Patient domain.PatientState `json:"patient" jsonschema:"required" jsonschema_description:"The patient state to assess"`
}

// FollowUpArgs is the input of follow_up_plan.
type FollowUpArgs struct {
	Patient domain.PatientState     `json:"patient" jsonschema:"required" jsonschema_description:"The patient state"`
	Regimen *domain.ProposedRegimen `json:"regimen,omitempty" jsonschema_description:"The regimen being followed up"`
}

// BundleArgs is the input of get_audit_bundle.
type BundleArgs struct {
	ID string `json:"id" jsonschema:"required" jsonschema_description:"Assessment ID"`
}

// CompleteResponse is the output of complete_assessment.
type CompleteResponse struct {
	Bundle   *audit.Bundle `json:"bundle" jsonschema_description:"The audit bundle of the assessment"`
	Replayed bool          `json:"replayed" jsonschema_description:"True when an earlier submission with the same ID was returned"`
}

// Server exposes the triage service as an MCP server.
type Server struct {
	service   Service
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP server.
func NewServer(svc Service, opts ...Option) *Server {
	s := &Server{
		service: svc,
		logger:  logging.NewNop(),
		mcpServer: server.NewMCPServer("triage-mcp", strings.TrimSpace(triage.Version),
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
			server.WithRecovery(),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer { return s.mcpServer }

// ServeStdio serves on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves over SSE on addr until ctx ends.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		s.logger.Info("MCP server shutting down")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("assess_and_plan",
		mcp.WithDescription("Evaluate a patient with the deterministic decision engine and validator. "+
			"Returns the decision, the validated regimen and the follow-up plan. No advisory agents are called."),
		mcp.WithInputSchema[PatientArgs](),
		mcp.WithOutputSchema[triage.Plan](),
	), mcp.NewStructuredToolHandler(s.handleAssessAndPlan))

	s.mcpServer.AddTool(mcp.NewTool("complete_assessment",
		mcp.WithDescription("Run the full orchestrated assessment and store its audit bundle. "+
			"Any plan still requires prescriber sign-off."),
		mcp.WithInputSchema[CompleteArgs](),
		mcp.WithOutputSchema[CompleteResponse](),
	), mcp.NewStructuredToolHandler(s.handleComplete))

	s.mcpServer.AddTool(mcp.NewTool("follow_up_plan",
		mcp.WithDescription("Build the 48-72 hour reassessment plan for a patient and regimen."),
		mcp.WithInputSchema[FollowUpArgs](),
		mcp.WithOutputSchema[domain.FollowUpPlan](),
	), mcp.NewStructuredToolHandler(s.handleFollowUp))

	s.mcpServer.AddTool(mcp.NewTool("get_audit_bundle",
		mcp.WithDescription("Fetch the stored audit bundle of an assessment."),
		mcp.WithInputSchema[BundleArgs](),
	), mcp.NewTypedToolHandler(s.handleGetBundle))
}

func (s *Server) handleAssessAndPlan(ctx context.Context, request mcp.CallToolRequest, args PatientArgs) (triage.Plan, error) {
	plan, err := s.service.AssessAndPlan(args.Patient)
	if err != nil {
		return triage.Plan{}, s.reject("assess_and_plan", err)
	}
	return plan, nil
}

func (s *Server) handleComplete(ctx context.Context, request mcp.CallToolRequest, args CompleteArgs) (CompleteResponse, error) {
	res, err := s.service.Complete(ctx, orchestrator.Request{ID: args.ID, Patient: args.Patient})
	if err != nil {
		return CompleteResponse{}, s.reject("complete_assessment", err)
	}
	return CompleteResponse{Bundle: res.Bundle, Replayed: res.Replayed}, nil
}

func (s *Server) handleFollowUp(ctx context.Context, request mcp.CallToolRequest, args FollowUpArgs) (domain.FollowUpPlan, error) {
	plan, err := s.service.FollowUpPlan(args.Patient, args.Regimen)
	if err != nil {
		return domain.FollowUpPlan{}, s.reject("follow_up_plan", err)
	}
	return plan, nil
}

func (s *Server) handleGetBundle(ctx context.Context, request mcp.CallToolRequest, args BundleArgs) (*mcp.CallToolResult, error) {
	b, err := s.service.Bundle(ctx, args.ID)
	if errors.Is(err, domain.ErrBundleNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("assessment %q not found", args.ID)), nil
	}
	if err != nil {
		return mcp.NewToolResultErrorFromErr("get_audit_bundle failed", err), nil
	}
	data, err := audit.Encode(b)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}

// reject keeps input errors readable and logs everything else.
func (s *Server) reject(tool string, err error) error {
	if errs := domain.ValidationErrors(err); len(errs) > 0 {
		return errors.Join(errs...)
	}
	if !errors.Is(err, domain.ErrInvalidPatient) && !errors.Is(err, formulary.ErrEntryNotFound) {
		s.logger.Error("MCP tool failed", "tool", tool, "error", err)
	}
	return err
}

type formularySummary struct {
	DefaultLocale string              `json:"default_locale"`
	Locales       map[string][]string `json:"locales"`
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(FormularyURI, "Formulary",
		mcp.WithResourceDescription("Locales and formulary agents in preference order"),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		set := s.service.Formulary()
		summary := formularySummary{
			DefaultLocale: set.DefaultLocale(),
			Locales:       make(map[string][]string),
		}
		for _, locale := range set.Locales() {
			tbl, err := set.Table(locale)
			if err != nil {
				return nil, err
			}
			summary.Locales[locale] = tbl.Agents()
		}
		data, err := json.Marshal(summary)
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      FormularyURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}
