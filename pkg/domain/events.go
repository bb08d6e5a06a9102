package domain

import (
	"context"
	"time"
)

// Stage names a step of the orchestration pipeline. Stage names are also the
// keys of the audit trail.
type Stage string

const (
	StageIntake          Stage = "intake"
	StageGateCheck       Stage = "gate_check"
	StageAssessed        Stage = "assessed"
	StageRouted          Stage = "routed"
	StageSummary         Stage = "summary"
	StageReasoning       Stage = "reasoning"
	StageSafetyReview    Stage = "safety_review"
	StageRefine          Stage = "refine"
	StageValidate        Stage = "validate"
	StageAuditAssembly   Stage = "audit_assembly"
	StageEnrichment      Stage = "enrichment"
	StageVerify          Stage = "verify"
	StageEvidence        Stage = "evidence"
	StageFollowUp        Stage = "follow_up"
	StageSignoffRequired Stage = "signoff_required"
	StageFinal           Stage = "final"
	StageInterrupted     Stage = "interrupted"
)

// InterruptReason explains why a run ended in Interrupted.
type InterruptReason string

const (
	InterruptRedFlag              InterruptReason = "red_flag"
	InterruptDecision             InterruptReason = "decision"
	InterruptSafetyReject         InterruptReason = "safety_reject"
	InterruptValidationFail       InterruptReason = "validation_fail"
	InterruptValidatorUnavailable InterruptReason = "validator_unavailable"
	InterruptVerifierFlag         InterruptReason = "verifier_flag"
	InterruptFormularyMissing     InterruptReason = "formulary_missing"
	InterruptCanceled             InterruptReason = "canceled"
)

// StageEvent is emitted on every state transition.
type StageEvent struct {
	Timestamp    time.Time `json:"timestamp"`
	AssessmentID string    `json:"assessment_id"`
	From         Stage     `json:"from"`
	To           Stage     `json:"to"`
}

// PortEvent is emitted after every advisory port call.
type PortEvent struct {
	Timestamp    time.Time      `json:"timestamp"`
	AssessmentID string         `json:"assessment_id"`
	Port         string         `json:"port"`
	Attempts     int            `json:"attempts"`
	Duration     time.Duration  `json:"duration"`
	Failure      CapabilityKind `json:"failure,omitempty"`
}

// CompletionEvent is emitted once per run.
type CompletionEvent struct {
	Timestamp    time.Time       `json:"timestamp"`
	AssessmentID string          `json:"assessment_id"`
	Decision     Decision        `json:"decision"`
	Terminal     Stage           `json:"terminal"`
	Reason       InterruptReason `json:"reason,omitempty"`
	Duration     time.Duration   `json:"duration"`
}

// LifecycleHooks defines callbacks for orchestrator observability.
type LifecycleHooks struct {
	OnTransition func(context.Context, *StageEvent)
	OnPortCall   func(context.Context, *PortEvent)
	OnComplete   func(context.Context, *CompletionEvent)
}

// Merge returns hooks that invoke h and then o.
func (h LifecycleHooks) Merge(o LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnTransition: chain(h.OnTransition, o.OnTransition),
		OnPortCall:   chain(h.OnPortCall, o.OnPortCall),
		OnComplete:   chain(h.OnComplete, o.OnComplete),
	}
}

func chain[E any](a, b func(context.Context, *E)) func(context.Context, *E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e *E) {
		a(ctx, e)
		b(ctx, e)
	}
}
