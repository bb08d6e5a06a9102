package ports

import (
	"context"

	"github.com/aretw0/triage/pkg/domain"
)

// ReasoningRequest is the input of the clinical-reasoning agent. Feedback is
// set on the extra round that follows a modify or conditional safety review.
type ReasoningRequest struct {
	Patient   domain.PatientState      `json:"patient"`
	Outcome   domain.AssessmentOutcome `json:"outcome"`
	Candidate *domain.ProposedRegimen  `json:"candidate,omitempty"`
	Feedback  *domain.SafetyReview     `json:"feedback,omitempty"`
	Round     int                      `json:"round"`
}

// Reasoner explains and may refine the engine's treatment recommendation.
type Reasoner interface {
	Reason(ctx context.Context, req ReasoningRequest) (domain.ReasoningResult, error)
}

// SafetyReviewRequest is the input of the pharmacist agent.
type SafetyReviewRequest struct {
	Patient   domain.PatientState      `json:"patient"`
	Outcome   domain.AssessmentOutcome `json:"outcome"`
	Regimen   *domain.ProposedRegimen  `json:"regimen"`
	Reasoning *domain.ReasoningResult  `json:"reasoning,omitempty"`
	Round     int                      `json:"round"`
}

// SafetyReviewer reviews a candidate regimen for contraindications and interactions.
type SafetyReviewer interface {
	Review(ctx context.Context, req SafetyReviewRequest) (domain.SafetyReview, error)
}

// SummaryRequest is the input of the referral summarizer.
type SummaryRequest struct {
	Patient domain.PatientState      `json:"patient"`
	Outcome domain.AssessmentOutcome `json:"outcome"`
}

// Summarizer writes a brief clinician-facing summary for referral paths.
type Summarizer interface {
	Summarize(ctx context.Context, req SummaryRequest) (domain.DoctorSummary, error)
}

// VerificationRequest is the input of the verifier.
type VerificationRequest struct {
	Patient    domain.PatientState      `json:"patient"`
	Outcome    domain.AssessmentOutcome `json:"outcome"`
	Regimen    *domain.ProposedRegimen  `json:"regimen"`
	Review     *domain.SafetyReview     `json:"review,omitempty"`
	Reasoning  *domain.ReasoningResult  `json:"reasoning,omitempty"`
	Validation domain.ValidationResult  `json:"validation"`
}

// Verifier audits the assembled plan. It can only append a report.
type Verifier interface {
	Verify(ctx context.Context, req VerificationRequest) (domain.VerificationReport, error)
}

// EvidenceRequest is the input of evidence synthesis.
type EvidenceRequest struct {
	Patient domain.PatientState      `json:"patient"`
	Outcome domain.AssessmentOutcome `json:"outcome"`
	Regimen *domain.ProposedRegimen  `json:"regimen"`
}

// EvidenceSynthesizer gathers citations supporting a validated plan.
type EvidenceSynthesizer interface {
	Synthesize(ctx context.Context, req EvidenceRequest) (domain.EvidenceSummary, error)
}

// StateValidator runs the final deterministic safety check. An error means
// the check could not run.
type StateValidator interface {
	Validate(ctx context.Context, req domain.ValidationRequest) (domain.ValidationResult, error)
}

// Versioned is implemented by components that report a version for the audit trail.
type Versioned interface {
	Version() string
}

// VersionOf returns c's version, or "unversioned".
func VersionOf(c any) string {
	if v, ok := c.(Versioned); ok {
		return v.Version()
	}
	return "unversioned"
}
