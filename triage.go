package triage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/triage/internal/logging"
	"github.com/aretw0/triage/pkg/audit"
	"github.com/aretw0/triage/pkg/domain"
	"github.com/aretw0/triage/pkg/engine"
	"github.com/aretw0/triage/pkg/formulary"
	"github.com/aretw0/triage/pkg/orchestrator"
	"github.com/aretw0/triage/pkg/submission"
	"github.com/aretw0/triage/pkg/validator"
)

// ReadinessCheck reports whether a dependency can serve requests.
type ReadinessCheck func(ctx context.Context) error

// Service is the entry point shared by the transports.
type Service struct {
	set         *formulary.Set
	submissions *submission.Manager
	checks      map[string]ReadinessCheck
	logger      *slog.Logger
}

// Option defines a functional option for configuring the Service.
type Option func(*Service)

// WithReadinessCheck registers a named dependency check used by Ready.
func WithReadinessCheck(name string, check ReadinessCheck) Option {
	return func(s *Service) {
		s.checks[name] = check
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New creates a Service over a formulary and a submission manager.
func New(set *formulary.Set, submissions *submission.Manager, opts ...Option) *Service {
	s := &Service{
		set:         set,
		submissions: submissions,
		checks:      make(map[string]ReadinessCheck),
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Formulary returns the loaded formulary set.
func (s *Service) Formulary() *formulary.Set { return s.set }

// Plan is the engine-only result of AssessAndPlan.
type Plan struct {
	Outcome            domain.AssessmentOutcome `json:"outcome"`
	Validation         *domain.ValidationResult `json:"validation,omitempty"`
	FollowUp           *domain.FollowUpPlan     `json:"follow_up,omitempty"`
	RequiresEscalation bool                     `json:"requires_escalation"`
	SignoffRequired    bool                     `json:"signoff_required"`
	EngineVersion      string                   `json:"engine_version"`
}

// AssessAndPlan evaluates p with the Decision Engine and validates the
// selected regimen. No advisory agent is called. A regimen that fails
// validation is withheld and the plan requires escalation.
func (s *Service) AssessAndPlan(p domain.PatientState) (Plan, error) {
	p, tbl, err := s.prepare(p)
	if err != nil {
		return Plan{}, err
	}

	out := engine.Evaluate(p, tbl)
	plan := Plan{
		Outcome:            out,
		RequiresEscalation: out.RequiresEscalation,
		EngineVersion:      orchestrator.EngineVersion,
	}
	if out.Decision != domain.DecisionRecommendTreatment || out.Regimen == nil {
		return plan, nil
	}

	res, err := validator.Validate(domain.ValidationRequest{
		Patient:  p,
		Decision: out.Decision,
		Regimen:  out.Regimen,
	}, tbl)
	if err != nil {
		return plan, err
	}
	plan.Validation = &res
	if !res.Pass {
		s.logger.Warn("engine regimen failed validation", "agent", out.Regimen.Agent, "rules", res.RulesFired)
		plan.Outcome.Regimen = nil
		plan.RequiresEscalation = true
		return plan, nil
	}

	fu := engine.FollowUpPlan(p, out.Regimen, tbl)
	plan.FollowUp = &fu
	plan.SignoffRequired = true
	return plan, nil
}

// FollowUpPlan builds the reassessment plan for p on regimen. regimen may be
// nil; when set, its agent must be in the formulary of p's locale.
func (s *Service) FollowUpPlan(p domain.PatientState, regimen *domain.ProposedRegimen) (domain.FollowUpPlan, error) {
	p, tbl, err := s.prepare(p)
	if err != nil {
		return domain.FollowUpPlan{}, err
	}
	if regimen != nil {
		if _, ok := tbl.Lookup(regimen.Agent); !ok {
			return domain.FollowUpPlan{}, fmt.Errorf("%w: %s in %s", formulary.ErrEntryNotFound, regimen.Agent, tbl.Locale)
		}
	}
	return engine.FollowUpPlan(p, regimen, tbl), nil
}

// Complete runs the orchestrated assessment. Each ID is assessed once; later
// submissions replay the stored bundle.
func (s *Service) Complete(ctx context.Context, req orchestrator.Request) (submission.Result, error) {
	return s.submissions.Submit(ctx, req)
}

// Bundle returns the stored audit bundle for id.
func (s *Service) Bundle(ctx context.Context, id string) (*audit.Bundle, error) {
	return s.submissions.Get(ctx, id)
}

// Bundles lists the stored bundle IDs.
func (s *Service) Bundles(ctx context.Context) ([]string, error) {
	return s.submissions.List(ctx)
}

// Ready runs every readiness check and joins their failures.
func (s *Service) Ready(ctx context.Context) error {
	var errs []error
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Service) prepare(p domain.PatientState) (domain.PatientState, *formulary.Table, error) {
	p = p.Normalize()
	if p.LocaleCode == "" {
		p.LocaleCode = s.set.DefaultLocale()
	}
	if err := p.Validate(); err != nil {
		return p, nil, err
	}
	tbl, err := s.set.Table(p.LocaleCode)
	if err != nil {
		return p, nil, fmt.Errorf("%w: %w", domain.ErrInvalidPatient, err)
	}
	return p, tbl, nil
}
