package orchestrator

import (
	"strings"

	"github.com/aretw0/triage/pkg/domain"
	"github.com/aretw0/triage/pkg/engine"
	"github.com/aretw0/triage/pkg/formulary"
)

// Refinement is the trail artifact of the Refine stage.
type Refinement struct {
	Candidate *domain.ProposedRegimen `json:"candidate"`
	Final     *domain.ProposedRegimen `json:"final"`
	Note      string                  `json:"note"`
}

// Refine reconciles the safety review with the formulary table. It never
// calls an advisory agent:
//
//   - no review, approval or a rejection: the candidate is kept (a rejection
//     is left for the validator to fail closed on);
//   - a suggested regimen that is canonical and not excluded for the patient
//     replaces the candidate;
//   - a flag tagging the candidate agent ("<agent>", "contraindication.<agent>"
//     or "allergy.<agent>") withdraws it in favour of the next eligible agent
//     of the selection order;
//   - otherwise, including interaction tags, the candidate is kept and the
//     review conditions travel with the bundle.
func Refine(p domain.PatientState, t *formulary.Table, candidate *domain.ProposedRegimen, review *domain.SafetyReview) Refinement {
	ref := Refinement{Candidate: candidate.Clone(), Final: candidate.Clone()}

	switch {
	case candidate == nil:
		ref.Note = "no candidate regimen"
		return ref
	case review == nil:
		ref.Note = "no safety review available, engine regimen kept"
		return ref
	case review.Approval == domain.ApprovalApprove:
		ref.Note = "approved by safety review"
		return ref
	case review.Approval.Blocks():
		ref.Note = "safety review recommended " + string(review.Approval)
		return ref
	}

	if s := review.Suggested; s != nil && t.IsCanonical(s) {
		e, _ := t.Lookup(s.Agent)
		if engine.Exclusion(p, e) == "" {
			ref.Final = s.Clone()
			ref.Note = "safety review suggestion adopted"
			return ref
		}
	}

	if withdraws(review.Flags, candidate.Agent) {
		sel := engine.Select(p, t, candidate.Agent)
		if sel.Entry != nil {
			ref.Final = sel.Entry.Regimen()
			ref.Note = candidate.Agent + " withdrawn after safety review, next eligible agent selected"
			return ref
		}
		ref.Note = candidate.Agent + " flagged by safety review, no eligible alternative"
		return ref
	}

	ref.Note = "kept with safety review conditions: " + strings.Join(review.Flags, ", ")
	return ref
}

// withdraws reports whether any flag is a withdrawal tag for agent. Free text
// that merely mentions the agent does not count.
func withdraws(flags []string, agent string) bool {
	agent = strings.ToLower(agent)
	for _, f := range flags {
		switch strings.ToLower(strings.TrimSpace(f)) {
		case agent, "contraindication." + agent, "allergy." + agent:
			return true
		}
	}
	return false
}
