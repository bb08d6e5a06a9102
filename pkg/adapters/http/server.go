package http

import (
	"context"
	"encoding/json"
	"errors"
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
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Service is the triage core as seen by the REST transport.
type Service interface {
	AssessAndPlan(p domain.PatientState) (triage.Plan, error)
	FollowUpPlan(p domain.PatientState, regimen *domain.ProposedRegimen) (domain.FollowUpPlan, error)
	Complete(ctx context.Context, req orchestrator.Request) (submission.Result, error)
	Bundle(ctx context.Context, id string) (*audit.Bundle, error)
	Bundles(ctx context.Context) ([]string, error)
	Ready(ctx context.Context) error
}

// Server holds the REST handlers.
type Server struct {
	service Service
	logger  *slog.Logger
	metrics http.Handler
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// IdempotencyHeader carries the assessment ID when the body has none.
const IdempotencyHeader = "Idempotency-Key"

// ReplayedHeader is set on responses that replay a stored bundle.
const ReplayedHeader = "Idempotent-Replayed"

// NewHandler creates the HTTP handler for svc.
func NewHandler(svc Service, opts ...Option) (http.Handler, error) {
	s := &Server{service: svc, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	router, err := newRouter()
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.health)
	r.Get("/readyz", s.ready)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		_, _ = w.Write(rawSpec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(swaggerHTML))
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Use(requestValidator(router, func(w http.ResponseWriter, err error) {
			writeError(w, http.StatusBadRequest, "request does not match the API schema", err.Error())
		}))
		r.Post("/assessments", s.completeAssessment)
		r.Get("/assessments", s.listAssessments)
		r.Get("/assessments/{id}", s.getAssessment)
		r.Post("/assess-and-plan", s.assessAndPlan)
		r.Post("/follow-up-plan", s.followUpPlan)
	})

	return enableCORS(r), nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+IdempotencyHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Triage API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

type assessmentRequest struct {
	ID      string              `json:"id"`
	Patient domain.PatientState `json:"patient"`
}

type followUpRequest struct {
	Patient domain.PatientState     `json:"patient"`
	Regimen *domain.ProposedRegimen `json:"regimen"`
}

type errorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

// completeAssessment handles POST /v1/assessments.
func (s *Server) completeAssessment(w http.ResponseWriter, r *http.Request) {
	var body assessmentRequest
	if !decode(w, r, &body) {
		return
	}
	if body.ID == "" {
		body.ID = strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	}

	res, err := s.service.Complete(r.Context(), orchestrator.Request{ID: body.ID, Patient: body.Patient})
	if err != nil {
		s.fail(w, "complete assessment", err)
		return
	}

	w.Header().Set("Location", "/v1/assessments/"+res.Bundle.ID)
	status := http.StatusCreated
	if res.Replayed {
		w.Header().Set(ReplayedHeader, "true")
		status = http.StatusOK
	}
	writeJSON(w, status, res.Bundle)
}

// listAssessments handles GET /v1/assessments.
func (s *Server) listAssessments(w http.ResponseWriter, r *http.Request) {
	ids, err := s.service.Bundles(r.Context())
	if err != nil {
		s.fail(w, "list assessments", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"ids": ids})
}

// getAssessment handles GET /v1/assessments/{id}.
func (s *Server) getAssessment(w http.ResponseWriter, r *http.Request) {
	b, err := s.service.Bundle(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "get assessment", err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// assessAndPlan handles POST /v1/assess-and-plan.
func (s *Server) assessAndPlan(w http.ResponseWriter, r *http.Request) {
	var p domain.PatientState
	if !decode(w, r, &p) {
		return
	}
	plan, err := s.service.AssessAndPlan(p)
	if err != nil {
		s.fail(w, "assess and plan", err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

// followUpPlan handles POST /v1/follow-up-plan.
func (s *Server) followUpPlan(w http.ResponseWriter, r *http.Request) {
	var body followUpRequest
	if !decode(w, r, &body) {
		return
	}
	plan, err := s.service.FollowUpPlan(body.Patient, body.Regimen)
	if err != nil {
		s.fail(w, "follow-up plan", err)
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": strings.TrimSpace(triage.Version),
	})
}

func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Ready(r.Context()); err != nil {
		s.logger.Warn("not ready", "error", err)
		writeError(w, http.StatusServiceUnavailable, "not ready", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// fail maps core errors onto status codes.
func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidPatient):
		var details []string
		for _, e := range domain.ValidationErrors(err) {
			details = append(details, e.Error())
		}
		if len(details) == 0 {
			details = []string{err.Error()}
		}
		writeError(w, http.StatusBadRequest, "invalid patient state", details...)
	case errors.Is(err, domain.ErrBundleNotFound):
		writeError(w, http.StatusNotFound, "assessment not found")
	case errors.Is(err, formulary.ErrEntryNotFound):
		writeError(w, http.StatusUnprocessableEntity, "regimen not in formulary", err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "assessment canceled")
	default:
		s.logger.Error(op+" failed", "error", err)
		writeError(w, http.StatusInternalServerError, op+" failed")
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, details ...string) {
	writeJSON(w, status, errorResponse{Error: msg, Details: details})
}

// Serve runs handler on addr until ctx ends, then shuts down gracefully
// within grace.
func Serve(ctx context.Context, addr string, handler http.Handler, grace time.Duration, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), grace)
	defer cancel()
	logger.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
