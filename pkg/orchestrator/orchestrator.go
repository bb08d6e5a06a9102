package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/triage/internal/logging"
	"github.com/aretw0/triage/pkg/audit"
	"github.com/aretw0/triage/pkg/domain"
	"github.com/aretw0/triage/pkg/engine"
	"github.com/aretw0/triage/pkg/formulary"
	"github.com/aretw0/triage/pkg/ports"
	"github.com/aretw0/triage/pkg/validator"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// EngineVersion is recorded for deterministic stages.
const EngineVersion = "engine/1"

// Orchestrator runs assessments. It holds no per-run state and is safe for
// concurrent use.
type Orchestrator struct {
	cfg       Config
	formulary *formulary.Set

	reasoner   ports.Reasoner
	reviewer   ports.SafetyReviewer
	summarizer ports.Summarizer
	verifier   ports.Verifier
	evidence   ports.EvidenceSynthesizer
	validator  ports.StateValidator

	logger *slog.Logger
	hooks  domain.LifecycleHooks
	now    func() time.Time
	newID  func() string
}

// New creates an orchestrator over the formulary set. Without
// WithValidator, the in-process validator is used.
func New(set *formulary.Set, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:       DefaultConfig(),
		formulary: set,
		logger:    logging.NewNop(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.validator == nil {
		o.validator = validator.New(set)
	}
	return o
}

// Config returns the run configuration.
func (o *Orchestrator) Config() Config { return o.cfg }

// Request is one assessment request. ID is generated when empty.
type Request struct {
	ID      string
	Patient domain.PatientState
}

// Run executes one assessment and returns its finalized bundle.
//
// Input errors are returned without a bundle. If ctx is canceled mid-run, the
// bundle ends in Interrupted(canceled) and the context error is returned with it.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*audit.Bundle, error) {
	p := req.Patient.Normalize()
	if p.LocaleCode == "" {
		p.LocaleCode = o.formulary.DefaultLocale()
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	tbl, err := o.formulary.Table(p.LocaleCode)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidPatient, err)
	}

	id := req.ID
	if id == "" {
		id = o.newID()
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	r := &run{
		o:       o,
		id:      id,
		p:       p,
		tbl:     tbl,
		m:       newMachine(),
		b:       audit.NewBuilder(id, p, audit.WithClock(o.now)),
		logger:  o.logger.With("assessment_id", id),
		cancel:  cancel,
		started: o.now(),
	}
	r.logger.Debug("assessment started", "locale", tbl.Locale)

	bundle, err := r.execute(runCtx)
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil && bundle.InterruptReason != nil && *bundle.InterruptReason == domain.InterruptCanceled {
		return bundle, ctx.Err()
	}
	return bundle, nil
}

// run is the state of one assessment. It is the single writer of its bundle.
type run struct {
	o       *Orchestrator
	id      string
	p       domain.PatientState
	tbl     *formulary.Table
	m       *machine
	b       *audit.Builder
	logger  *slog.Logger
	cancel  context.CancelFunc
	started time.Time

	outcome    domain.AssessmentOutcome
	reasoning  *domain.ReasoningResult
	review     *domain.SafetyReview
	validation *domain.ValidationResult
}

func (r *run) execute(ctx context.Context) (*audit.Bundle, error) {
	if err := r.enter(ctx, domain.StageGateCheck); err != nil {
		return nil, err
	}
	if out, hit := engine.RedFlagGate(r.p); hit {
		r.outcome = out
		if err := r.record(domain.StageGateCheck, out, EngineVersion); err != nil {
			return nil, err
		}
		return r.interrupt(ctx, domain.InterruptRedFlag)
	}
	if err := r.record(domain.StageGateCheck, map[string]bool{"red_flags": false}, EngineVersion); err != nil {
		return nil, err
	}

	if err := r.enter(ctx, domain.StageAssessed); err != nil {
		return nil, err
	}
	r.outcome = engine.Evaluate(r.p, r.tbl)
	if err := r.record(domain.StageAssessed, r.outcome, EngineVersion); err != nil {
		return nil, err
	}

	if err := r.enter(ctx, domain.StageRouted); err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return r.interrupt(ctx, domain.InterruptCanceled)
	}
	if r.outcome.Decision != domain.DecisionRecommendTreatment {
		return r.routeWithoutTreatment(ctx)
	}
	return r.treat(ctx)
}

func (r *run) routeWithoutTreatment(ctx context.Context) (*audit.Bundle, error) {
	if r.o.cfg.DoctorSummaryOnReferral && r.o.summarizer != nil {
		res := invoke(ctx, r, PortSummarizer, r.o.cfg.attempts(), func(ctx context.Context) (domain.DoctorSummary, error) {
			return r.o.summarizer.Summarize(ctx, ports.SummaryRequest{Patient: r.p, Outcome: r.outcome})
		}, nil)
		if res.Succeeded() {
			summary := res.Value
			if err := r.record(domain.StageSummary, summary, ports.VersionOf(r.o.summarizer)); err != nil {
				return nil, err
			}
			if err := r.b.Update(func(b *audit.Bundle) { b.Summary = &summary }); err != nil {
				return nil, err
			}
		} else if res.Err.Kind == domain.CapabilityCanceled {
			return r.interrupt(ctx, domain.InterruptCanceled)
		} else if err := r.b.AppendFailure(domain.StageSummary, ports.VersionOf(r.o.summarizer), res.Err); err != nil {
			return nil, err
		}
	}

	if err := r.enter(ctx, domain.StageValidate); err != nil {
		return nil, err
	}
	if reason, ok, err := r.validate(ctx, nil); err != nil || !ok {
		if err != nil {
			return nil, err
		}
		return r.interrupt(ctx, reason)
	}
	return r.interrupt(ctx, domain.InterruptDecision)
}

func (r *run) treat(ctx context.Context) (*audit.Bundle, error) {
	candidate := r.outcome.Regimen.Clone()
	var feedback *domain.SafetyReview

	for {
		if err := r.enter(ctx, domain.StageReasoning); err != nil {
			return nil, err
		}
		next, canceled, err := r.reason(ctx, candidate, feedback)
		if err != nil {
			return nil, err
		}
		if canceled {
			return r.interrupt(ctx, domain.InterruptCanceled)
		}
		candidate = next

		if err := r.enter(ctx, domain.StageSafetyReview); err != nil {
			return nil, err
		}
		review, canceled, err := r.safetyReview(ctx, candidate)
		if err != nil {
			return nil, err
		}
		if canceled {
			return r.interrupt(ctx, domain.InterruptCanceled)
		}
		r.review = review

		if review != nil && review.Approval.Blocks() && r.o.cfg.StrictInterrupts {
			return r.interrupt(ctx, domain.InterruptSafetyReject)
		}
		if review != nil && review.Approval.NeedsRevision() && r.m.canFeedback() {
			feedback = review
			continue
		}
		break
	}

	if err := r.enter(ctx, domain.StageRefine); err != nil {
		return nil, err
	}
	ref := Refine(r.p, r.tbl, candidate, r.review)
	if err := r.record(domain.StageRefine, ref, EngineVersion); err != nil {
		return nil, err
	}

	if err := r.enter(ctx, domain.StageValidate); err != nil {
		return nil, err
	}
	reason, ok, err := r.validate(ctx, ref.Final)
	if err != nil {
		return nil, err
	}
	if !ok {
		return r.interrupt(ctx, reason)
	}

	if err := r.enter(ctx, domain.StageAuditAssembly); err != nil {
		return nil, err
	}
	if err := r.b.Update(func(b *audit.Bundle) {
		b.FinalDecision = domain.DecisionRecommendTreatment
		b.FinalRegimen = ref.Final.Clone()
		if r.reasoning != nil {
			c := r.reasoning.Confidence
			b.Confidence = &c
		}
	}); err != nil {
		return nil, err
	}

	if err := r.enter(ctx, domain.StageEnrichment); err != nil {
		return nil, err
	}
	escalate, canceled, err := r.enrich(ctx, ref.Final)
	if err != nil {
		return nil, err
	}
	if canceled {
		return r.interrupt(ctx, domain.InterruptCanceled)
	}
	if escalate && r.o.cfg.HonorVerifierEscalation {
		return r.interrupt(ctx, domain.InterruptVerifierFlag)
	}

	plan := engine.FollowUpPlan(r.p, ref.Final, r.tbl)
	if err := r.record(domain.StageFollowUp, plan, EngineVersion); err != nil {
		return nil, err
	}
	if err := r.b.Update(func(b *audit.Bundle) { b.FollowUp = &plan }); err != nil {
		return nil, err
	}

	if err := r.enter(ctx, domain.StageSignoffRequired); err != nil {
		return nil, err
	}
	signoff := r.o.cfg.PrescriberSignoffRequired
	if err := r.record(domain.StageSignoffRequired, map[string]bool{"prescriber_signoff_required": signoff}, EngineVersion); err != nil {
		return nil, err
	}
	if err := r.enter(ctx, domain.StageFinal); err != nil {
		return nil, err
	}
	return r.finish(ctx, domain.StageFinal, nil)
}

// reason returns the candidate for the safety review. A reasoning suggestion
// is adopted only when it is a canonical formulary regimen.
func (r *run) reason(ctx context.Context, candidate *domain.ProposedRegimen, feedback *domain.SafetyReview) (*domain.ProposedRegimen, bool, error) {
	if r.o.reasoner == nil {
		return candidate, false, r.b.Degrade("reasoning: no reasoner configured")
	}
	req := ports.ReasoningRequest{Patient: r.p, Outcome: r.outcome, Candidate: candidate, Feedback: feedback, Round: r.m.feedback}
	res := invoke(ctx, r, PortReasoner, r.o.cfg.attempts(), func(ctx context.Context) (domain.ReasoningResult, error) {
		return r.o.reasoner.Reason(ctx, req)
	}, domain.ReasoningResult.Check)

	version := ports.VersionOf(r.o.reasoner)
	if !res.Succeeded() {
		if res.Err.Kind == domain.CapabilityCanceled {
			return candidate, true, nil
		}
		return candidate, false, r.b.AppendFailure(domain.StageReasoning, version, res.Err)
	}

	result := res.Value
	r.reasoning = &result
	if err := r.record(domain.StageReasoning, result, version); err != nil {
		return candidate, false, err
	}
	if s := result.ProposedRegimen; s != nil && !s.Equal(candidate) {
		if !r.tbl.IsCanonical(s) {
			r.logger.Info("reasoning suggestion ignored", "agent", s.Agent)
			return candidate, false, r.b.Degrade("reasoning: suggestion " + s.Agent + " is not a formulary regimen, ignored")
		}
		r.logger.Info("reasoning suggestion adopted", "agent", s.Agent)
		return s.Clone(), false, nil
	}
	return candidate, false, nil
}

func (r *run) safetyReview(ctx context.Context, candidate *domain.ProposedRegimen) (*domain.SafetyReview, bool, error) {
	if r.o.reviewer == nil {
		return nil, false, r.b.Degrade("safety_review: no reviewer configured")
	}
	req := ports.SafetyReviewRequest{Patient: r.p, Outcome: r.outcome, Regimen: candidate, Reasoning: r.reasoning, Round: r.m.feedback}
	res := invoke(ctx, r, PortReviewer, r.o.cfg.attempts(), func(ctx context.Context) (domain.SafetyReview, error) {
		return r.o.reviewer.Review(ctx, req)
	}, domain.SafetyReview.Check)

	version := ports.VersionOf(r.o.reviewer)
	if !res.Succeeded() {
		if res.Err.Kind == domain.CapabilityCanceled {
			return nil, true, nil
		}
		return nil, false, r.b.AppendFailure(domain.StageSafetyReview, version, res.Err)
	}
	review := res.Value
	return &review, false, r.record(domain.StageSafetyReview, review, version)
}

// validate runs the state validator. It fails closed: any error, panic or
// timeout interrupts the run.
func (r *run) validate(ctx context.Context, regimen *domain.ProposedRegimen) (domain.InterruptReason, bool, error) {
	req := domain.ValidationRequest{Patient: r.p, Decision: r.outcome.Decision, Regimen: regimen, Review: r.review}
	res := invoke(ctx, r, PortValidator, 1, func(ctx context.Context) (domain.ValidationResult, error) {
		return r.o.validator.Validate(ctx, req)
	}, nil)

	version := ports.VersionOf(r.o.validator)
	if !res.Succeeded() {
		if err := r.b.AppendFailure(domain.StageValidate, version, res.Err); err != nil {
			return "", false, err
		}
		switch {
		case res.Err.Kind == domain.CapabilityCanceled:
			return domain.InterruptCanceled, false, nil
		case errors.Is(res.Err, formulary.ErrEntryNotFound):
			r.logger.Error("formulary entry missing for regimen", "error", res.Err)
			return domain.InterruptFormularyMissing, false, nil
		}
		r.logger.Error("state validator unavailable", "error", res.Err)
		return domain.InterruptValidatorUnavailable, false, nil
	}

	vr := res.Value
	r.validation = &vr
	if err := r.record(domain.StageValidate, vr, version); err != nil {
		return "", false, err
	}
	if err := r.b.Update(func(b *audit.Bundle) { b.Validation = &vr }); err != nil {
		return "", false, err
	}
	if !vr.Pass {
		r.logger.Warn("validation failed", "rules", vr.RulesFired, "severity", vr.Severity)
		return domain.InterruptValidationFail, false, nil
	}
	return "", true, nil
}

// shouldVerify reports whether the plan warrants an extra check. Unknown
// confidence counts as low.
func (r *run) shouldVerify() bool {
	switch {
	case r.validation != nil && r.validation.Severity.Max(domain.SeverityNone) != domain.SeverityNone:
		return true
	case r.reasoning == nil || r.reasoning.Confidence < r.o.cfg.ConfidenceThreshold:
		return true
	case r.review != nil && (r.review.RiskLevel == domain.RiskModerate || r.review.RiskLevel == domain.RiskHigh):
		return true
	}
	return false
}

// enrich runs verification (when warranted) and evidence synthesis
// concurrently. Neither can change the decision or regimen; results are
// merged into the bundle by this run only, after both have returned.
func (r *run) enrich(ctx context.Context, regimen *domain.ProposedRegimen) (escalate, canceled bool, err error) {
	verify := r.shouldVerify()

	var (
		verRes domain.Result[domain.VerificationReport]
		evRes  domain.Result[domain.EvidenceSummary]
	)
	g, gctx := errgroup.WithContext(ctx)
	if verify && r.o.verifier != nil {
		req := ports.VerificationRequest{Patient: r.p, Outcome: r.outcome, Regimen: regimen, Review: r.review, Reasoning: r.reasoning}
		if r.validation != nil {
			req.Validation = *r.validation
		}
		g.Go(func() error {
			verRes = invoke(gctx, r, PortVerifier, r.o.cfg.attempts(), func(ctx context.Context) (domain.VerificationReport, error) {
				return r.o.verifier.Verify(ctx, req)
			}, domain.VerificationReport.Check)
			return nil
		})
	}
	if r.o.evidence != nil {
		req := ports.EvidenceRequest{Patient: r.p, Outcome: r.outcome, Regimen: regimen}
		g.Go(func() error {
			evRes = invoke(gctx, r, PortEvidence, r.o.cfg.attempts(), func(ctx context.Context) (domain.EvidenceSummary, error) {
				return r.o.evidence.Synthesize(ctx, req)
			}, nil)
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		return false, true, nil
	}

	switch {
	case !verify:
	case r.o.verifier == nil:
		err = r.b.Degrade("verify: warranted but no verifier configured")
	case verRes.Succeeded():
		report := verRes.Value
		if err = r.record(domain.StageVerify, report, ports.VersionOf(r.o.verifier)); err == nil {
			err = r.b.Update(func(b *audit.Bundle) { b.Verification = &report })
		}
		escalate = report.RecommendEscalation
	default:
		err = r.b.AppendFailure(domain.StageVerify, ports.VersionOf(r.o.verifier), verRes.Err)
	}
	if err != nil {
		return false, false, err
	}

	switch {
	case r.o.evidence == nil:
		err = r.b.Degrade("evidence: sources missing, no evidence synthesizer configured")
	case evRes.Succeeded():
		summary := evRes.Value
		if err = r.record(domain.StageEvidence, summary, ports.VersionOf(r.o.evidence)); err == nil {
			err = r.b.Update(func(b *audit.Bundle) { b.Sources = append(b.Sources, summary.Citations...) })
		}
	default:
		if err = r.b.AppendFailure(domain.StageEvidence, ports.VersionOf(r.o.evidence), evRes.Err); err == nil {
			err = r.b.Degrade("evidence: sources missing")
		}
	}
	return escalate, false, err
}

func (r *run) enter(ctx context.Context, to domain.Stage) error {
	from, err := r.m.advance(to)
	if err != nil {
		return err
	}
	r.logger.Debug("stage transition", "from", from, "to", to)
	if h := r.o.hooks.OnTransition; h != nil {
		h(ctx, &domain.StageEvent{Timestamp: r.o.now(), AssessmentID: r.id, From: from, To: to})
	}
	return nil
}

func (r *run) record(stage domain.Stage, artifact any, version string) error {
	return r.b.Append(stage, artifact, version)
}

func (r *run) portEvent(ctx context.Context, port string, attempts int, start time.Time, failure domain.CapabilityKind) {
	if h := r.o.hooks.OnPortCall; h != nil {
		h(ctx, &domain.PortEvent{
			Timestamp:    r.o.now(),
			AssessmentID: r.id,
			Port:         port,
			Attempts:     attempts,
			Duration:     r.o.now().Sub(start),
			Failure:      failure,
		})
	}
}

// interrupt ends the run in Interrupted. In-flight advisory calls of the run
// are canceled and their results are never merged.
func (r *run) interrupt(ctx context.Context, reason domain.InterruptReason) (*audit.Bundle, error) {
	r.cancel()
	if err := r.enter(ctx, domain.StageInterrupted); err != nil {
		return nil, err
	}
	r.logger.Warn("assessment interrupted", "reason", reason, "decision", r.outcome.Decision)
	return r.finish(ctx, domain.StageInterrupted, &reason)
}

func (r *run) finish(ctx context.Context, terminal domain.Stage, reason *domain.InterruptReason) (*audit.Bundle, error) {
	err := r.b.Update(func(b *audit.Bundle) {
		out := r.outcome
		b.Outcome = &out
		if b.FinalDecision == "" {
			b.FinalDecision = out.Decision
		}
		if reason != nil {
			// nothing unvalidated or rejected leaves an interrupted run
			b.FinalRegimen = nil
		}
	})
	if err != nil {
		return nil, err
	}

	bundle, err := r.b.Finalize(terminal, reason, r.o.cfg.PrescriberSignoffRequired)
	if err != nil {
		return nil, err
	}

	ev := &domain.CompletionEvent{
		Timestamp:    r.o.now(),
		AssessmentID: r.id,
		Decision:     bundle.FinalDecision,
		Terminal:     terminal,
		Duration:     r.o.now().Sub(r.started),
	}
	if reason != nil {
		ev.Reason = *reason
	}
	r.logger.Info("assessment completed", "terminal", terminal, "decision", bundle.FinalDecision, "consensus", bundle.Consensus)
	if h := r.o.hooks.OnComplete; h != nil {
		h(context.WithoutCancel(ctx), ev)
	}
	return bundle, nil
}
