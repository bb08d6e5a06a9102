package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/aretw0/triage/pkg/domain"
	"github.com/aretw0/triage/pkg/formulary"
	"github.com/aretw0/triage/pkg/ports"
)

// LocalVersion is recorded for stages served by Local.
const LocalVersion = "local/1"

// Local answers every advisory port deterministically from the engine
// outcome and the formulary. It never suggests a regimen of its own.
type Local struct {
	set *formulary.Set
}

var (
	_ ports.Reasoner            = (*Local)(nil)
	_ ports.SafetyReviewer      = (*Local)(nil)
	_ ports.Summarizer          = (*Local)(nil)
	_ ports.Verifier            = (*Local)(nil)
	_ ports.EvidenceSynthesizer = (*Local)(nil)
)

// NewLocal creates local stand-ins citing the sources of set.
func NewLocal(set *formulary.Set) *Local {
	return &Local{set: set}
}

// Version implements ports.Versioned.
func (l *Local) Version() string { return LocalVersion }

func (l *Local) Reason(_ context.Context, req ports.ReasoningRequest) (domain.ReasoningResult, error) {
	res := domain.ReasoningResult{
		Confidence:      0.85,
		ProposedRegimen: req.Candidate.Clone(),
		Narrative:       fmt.Sprintf("Engine decision %s accepted.", req.Outcome.Decision),
	}
	for _, r := range req.Outcome.Rationale {
		res.Reasoning = append(res.Reasoning, r.Text)
	}
	if len(req.Outcome.InteractionFlags) > 0 {
		res.Confidence = 0.75
	}
	if req.Patient.Symptoms.Hematuria || req.Patient.Symptoms.GrossHematuria {
		res.DifferentialDx = append(res.DifferentialDx, "urolithiasis")
	}
	if req.Patient.Demographics.Sex == domain.SexFemale {
		res.DifferentialDx = append(res.DifferentialDx, "vaginitis", "sexually transmitted infection")
	}
	return res, nil
}

func (l *Local) Review(_ context.Context, req ports.SafetyReviewRequest) (domain.SafetyReview, error) {
	if req.Regimen == nil {
		return domain.SafetyReview{Approval: domain.ApprovalRefer, RiskLevel: domain.RiskHigh, Rationale: "no regimen to review"}, nil
	}
	review := domain.SafetyReview{Approval: domain.ApprovalApprove, RiskLevel: domain.RiskLow}
	prefix := "interaction." + req.Regimen.Agent + "."
	for _, f := range req.Outcome.InteractionFlags {
		if strings.HasPrefix(f, prefix) {
			review.Flags = append(review.Flags, "monitor: "+strings.TrimPrefix(f, prefix))
			review.RiskLevel = domain.RiskModerate
		}
	}
	if req.Patient.History.AntibioticsLast90d {
		review.Flags = append(review.Flags, "recent antibiotic exposure, consider culture")
	}
	if review.RiskLevel == domain.RiskModerate {
		review.Rationale = "approved with monitoring"
	}
	return review, nil
}

func (l *Local) Summarize(_ context.Context, req ports.SummaryRequest) (domain.DoctorSummary, error) {
	texts := make([]string, 0, len(req.Outcome.Rationale))
	for _, r := range req.Outcome.Rationale {
		texts = append(texts, r.Text)
	}
	s := domain.DoctorSummary{
		Summary: fmt.Sprintf("%d-year-old %s, %s: %s.",
			req.Patient.Demographics.Age, req.Patient.Demographics.Sex,
			strings.ReplaceAll(string(req.Outcome.Decision), "_", " "), strings.Join(texts, "; ")),
	}
	switch {
	case req.Outcome.Decision == domain.DecisionReferPyelonephritis:
		s.Actions = []string{"same-day clinical assessment", "urine culture before antibiotics"}
	case req.Outcome.Decision.IsReferral():
		s.Actions = []string{"clinician assessment", "urine culture and susceptibility"}
	default:
		s.Actions = []string{"symptomatic care", "reassess if symptoms develop"}
	}
	return s, nil
}

func (l *Local) Verify(_ context.Context, req ports.VerificationRequest) (domain.VerificationReport, error) {
	report := domain.VerificationReport{Verdict: domain.VerdictPass, Confidence: 0.9}
	for _, f := range req.Validation.Findings {
		report.Issues = append(report.Issues, fmt.Sprintf("%s: %s", f.Rule, f.Annotation))
	}
	if req.Review != nil {
		report.Issues = append(report.Issues, req.Review.Flags...)
	}
	if len(report.Issues) > 0 {
		report.Verdict = domain.VerdictNeedsReview
		report.Confidence = 0.75
	}
	return report, nil
}

func (l *Local) Synthesize(_ context.Context, req ports.EvidenceRequest) (domain.EvidenceSummary, error) {
	t, err := l.set.Table(req.Patient.LocaleCode)
	if err != nil {
		return domain.EvidenceSummary{}, err
	}
	out := domain.EvidenceSummary{Citations: []domain.Citation{}}
	if req.Regimen != nil {
		out.Summary = fmt.Sprintf("%s is listed first-line in the %s formulary.", req.Regimen.Agent, t.Locale)
	}
	for _, src := range t.Sources {
		out.Citations = append(out.Citations, domain.Citation{Title: src, Relevance: "formulary source"})
	}
	return out, nil
}
