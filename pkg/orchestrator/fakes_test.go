package orchestrator_test

import (
	"context"
	"sync/atomic"

	"github.com/aretw0/triage/pkg/domain"
	"github.com/aretw0/triage/pkg/ports"
)

type reasonerFunc func(context.Context, ports.ReasoningRequest) (domain.ReasoningResult, error)

func (f reasonerFunc) Reason(ctx context.Context, req ports.ReasoningRequest) (domain.ReasoningResult, error) {
	return f(ctx, req)
}

type reviewerFunc func(context.Context, ports.SafetyReviewRequest) (domain.SafetyReview, error)

func (f reviewerFunc) Review(ctx context.Context, req ports.SafetyReviewRequest) (domain.SafetyReview, error) {
	return f(ctx, req)
}

type summarizerFunc func(context.Context, ports.SummaryRequest) (domain.DoctorSummary, error)

func (f summarizerFunc) Summarize(ctx context.Context, req ports.SummaryRequest) (domain.DoctorSummary, error) {
	return f(ctx, req)
}

type verifierFunc func(context.Context, ports.VerificationRequest) (domain.VerificationReport, error)

func (f verifierFunc) Verify(ctx context.Context, req ports.VerificationRequest) (domain.VerificationReport, error) {
	return f(ctx, req)
}

type evidenceFunc func(context.Context, ports.EvidenceRequest) (domain.EvidenceSummary, error)

func (f evidenceFunc) Synthesize(ctx context.Context, req ports.EvidenceRequest) (domain.EvidenceSummary, error) {
	return f(ctx, req)
}

type validatorFunc func(context.Context, domain.ValidationRequest) (domain.ValidationResult, error)

func (f validatorFunc) Validate(ctx context.Context, req domain.ValidationRequest) (domain.ValidationResult, error) {
	return f(ctx, req)
}

// confident agrees with the candidate.
func confident(calls *atomic.Int32) reasonerFunc {
	return func(_ context.Context, req ports.ReasoningRequest) (domain.ReasoningResult, error) {
		if calls != nil {
			calls.Add(1)
		}
		return domain.ReasoningResult{
			Reasoning:       []string{"uncomplicated cystitis"},
			Confidence:      0.9,
			ProposedRegimen: req.Candidate,
		}, nil
	}
}

func approving(calls *atomic.Int32) reviewerFunc {
	return func(context.Context, ports.SafetyReviewRequest) (domain.SafetyReview, error) {
		if calls != nil {
			calls.Add(1)
		}
		return domain.SafetyReview{Approval: domain.ApprovalApprove, RiskLevel: domain.RiskLow}, nil
	}
}

func reviewing(approval domain.Approval, risk domain.RiskLevel) reviewerFunc {
	return func(context.Context, ports.SafetyReviewRequest) (domain.SafetyReview, error) {
		return domain.SafetyReview{Approval: approval, RiskLevel: risk}, nil
	}
}

func citing() evidenceFunc {
	return func(context.Context, ports.EvidenceRequest) (domain.EvidenceSummary, error) {
		return domain.EvidenceSummary{
			Summary:   "first-line therapy",
			Citations: []domain.Citation{{Title: "IDSA cystitis guideline", URL: "https://example.org/idsa"}},
		}, nil
	}
}
