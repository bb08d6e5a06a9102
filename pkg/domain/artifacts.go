package domain

import (
	"fmt"
	"math"
)

// Approval is the safety reviewer's recommendation.
type Approval string

const (
	ApprovalApprove     Approval = "approve"
	ApprovalModify      Approval = "modify"
	ApprovalConditional Approval = "conditional"
	ApprovalReject      Approval = "reject"
	ApprovalDoNotStart  Approval = "do_not_start"
	ApprovalRefer       Approval = "refer"
)

// Valid reports whether a is a known recommendation.
func (a Approval) Valid() bool {
	switch a {
	case ApprovalApprove, ApprovalModify, ApprovalConditional, ApprovalReject, ApprovalDoNotStart, ApprovalRefer:
		return true
	}
	return false
}

// Blocks reports whether the recommendation stops the treatment path.
func (a Approval) Blocks() bool {
	return a == ApprovalReject || a == ApprovalDoNotStart || a == ApprovalRefer
}

// NeedsRevision reports whether the reviewer asked for a changed regimen.
func (a Approval) NeedsRevision() bool {
	return a == ApprovalModify || a == ApprovalConditional
}

// RiskLevel grades the reviewer's overall concern.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
)

// Valid reports whether r is a known risk level.
func (r RiskLevel) Valid() bool {
	return r == RiskLow || r == RiskModerate || r == RiskHigh
}

// SafetyReview is the pharmacist port's output.
type SafetyReview struct {
	Approval  Approval         `json:"approval_recommendation"`
	RiskLevel RiskLevel        `json:"risk_level"`
	Flags     []string         `json:"flags,omitempty"`
	Suggested *ProposedRegimen `json:"suggested_regimen,omitempty"`
	Rationale string           `json:"rationale,omitempty"`
}

// ReasoningResult is the clinical-reasoning port's output.
type ReasoningResult struct {
	Reasoning       []string         `json:"reasoning,omitempty"`
	Confidence      float64          `json:"confidence"`
	ProposedRegimen *ProposedRegimen `json:"proposed_regimen,omitempty"`
	DifferentialDx  []string         `json:"differential_dx,omitempty"`
	Narrative       string           `json:"narrative,omitempty"`
}

// DoctorSummary is a short clinician-facing summary for referral paths.
type DoctorSummary struct {
	Summary string   `json:"summary"`
	Actions []string `json:"actions,omitempty"`
}

// Verdict is the verifier's judgement.
type Verdict string

const (
	VerdictPass        Verdict = "pass"
	VerdictNeedsReview Verdict = "needs_review"
	VerdictFail        Verdict = "fail"
)

// VerificationReport is appended by the optional verifier. It never changes
// the decision or the regimen.
type VerificationReport struct {
	Verdict             Verdict  `json:"verdict"`
	Issues              []string `json:"issues,omitempty"`
	RecommendEscalation bool     `json:"recommend_escalation"`
	Confidence          float64  `json:"confidence"`
}

// Citation is an opaque reference returned by evidence synthesis.
type Citation struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	Relevance string `json:"relevance,omitempty"`
}

// EvidenceSummary is the evidence-synthesis port's output.
type EvidenceSummary struct {
	Summary   string     `json:"summary,omitempty"`
	Citations []Citation `json:"citations,omitempty"`
}

// Severity grades validator findings. The zero value sorts lowest.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
)

func (s Severity) rank() int {
	switch s {
	case SeverityHigh:
		return 2
	case SeverityModerate:
		return 1
	}
	return 0
}

// Max returns the more severe of s and o.
func (s Severity) Max(o Severity) Severity {
	if o.rank() > s.rank() {
		return o
	}
	if s == "" {
		return SeverityNone
	}
	return s
}

// Finding is one fired validator rule.
type Finding struct {
	Rule       RuleID   `json:"rule"`
	Severity   Severity `json:"severity"`
	Annotation string   `json:"annotation,omitempty"`
}

// ValidationResult is the State Validator's output. Severity high implies
// Pass is false.
type ValidationResult struct {
	RulesFired []RuleID  `json:"rules_fired"`
	Findings   []Finding `json:"findings,omitempty"`
	Severity   Severity  `json:"severity"`
	Pass       bool      `json:"pass"`
}

// NewValidationResult derives the fired rules, overall severity and pass flag
// from findings.
func NewValidationResult(findings []Finding) ValidationResult {
	res := ValidationResult{
		RulesFired: make([]RuleID, 0, len(findings)),
		Findings:   findings,
		Severity:   SeverityNone,
	}
	for _, f := range findings {
		res.RulesFired = append(res.RulesFired, f.Rule)
		res.Severity = res.Severity.Max(f.Severity)
	}
	res.Pass = res.Severity != SeverityHigh
	return res
}

// ValidationRequest carries everything the State Validator checks.
type ValidationRequest struct {
	Patient  PatientState     `json:"patient"`
	Decision Decision         `json:"decision"`
	Regimen  *ProposedRegimen `json:"regimen,omitempty"`
	Review   *SafetyReview    `json:"review,omitempty"`
}

// Check rejects reviews with unknown enum values.
func (s SafetyReview) Check() error {
	if !s.Approval.Valid() {
		return fmt.Errorf("%w: approval_recommendation %q", ErrInvalidOutput, s.Approval)
	}
	if !s.RiskLevel.Valid() {
		return fmt.Errorf("%w: risk_level %q", ErrInvalidOutput, s.RiskLevel)
	}
	return nil
}

// Check rejects results whose confidence is outside [0, 1].
func (r ReasoningResult) Check() error {
	if math.IsNaN(r.Confidence) || r.Confidence < 0 || r.Confidence > 1 {
		return fmt.Errorf("%w: confidence %v", ErrInvalidOutput, r.Confidence)
	}
	return nil
}

// Check rejects reports with an unknown verdict or out of range confidence.
func (v VerificationReport) Check() error {
	switch v.Verdict {
	case VerdictPass, VerdictNeedsReview, VerdictFail:
	default:
		return fmt.Errorf("%w: verdict %q", ErrInvalidOutput, v.Verdict)
	}
	if math.IsNaN(v.Confidence) || v.Confidence < 0 || v.Confidence > 1 {
		return fmt.Errorf("%w: confidence %v", ErrInvalidOutput, v.Confidence)
	}
	return nil
}
