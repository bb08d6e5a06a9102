package engine

import (
	"fmt"
	"strings"

	"github.com/aretw0/triage/pkg/domain"
	"github.com/aretw0/triage/pkg/formulary"
)

// RedFlagGate evaluates rule 1 only. It reports true, with a complete
// escalation outcome, when any red flag is present.
func RedFlagGate(p domain.PatientState) (domain.AssessmentOutcome, bool) {
	fired := fire(p, redFlagChecks)
	if len(fired) == 0 {
		return domain.AssessmentOutcome{}, false
	}
	return domain.AssessmentOutcome{
		Decision:           domain.DecisionReferPyelonephritis,
		Rationale:          fired,
		RequiresEscalation: true,
	}, true
}

// Evaluate runs every rule in order against p using the locale table t.
// p is expected to be normalized.
func Evaluate(p domain.PatientState, t *formulary.Table) domain.AssessmentOutcome {
	if out, ok := RedFlagGate(p); ok {
		return out
	}

	th := threshold{
		egfr: t.ComplicatedBelowEGFR,
		text: fmt.Sprintf("renal function below eGFR %g mL/min", t.ComplicatedBelowEGFR),
	}
	if fired := fire(p, complicatingChecks(th)); len(fired) > 0 {
		return refer(domain.DecisionReferComplicated, fired)
	}
	if fired := fire(p, recurrenceChecks); len(fired) > 0 {
		return refer(domain.DecisionReferRecurrence, fired)
	}

	if p.AsymptomaticBacteriuria && !p.HasQualifyingSymptom() {
		return domain.AssessmentOutcome{
			Decision: domain.DecisionNoAntibioticsNotMet,
			Rationale: []domain.RationaleEntry{{
				Rule: RuleAsymptomaticExcluded,
				Text: "asymptomatic bacteriuria without qualifying symptoms is not treated",
			}},
		}
	}

	if !p.HasQualifyingSymptom() {
		return domain.AssessmentOutcome{
			Decision: domain.DecisionNoAntibioticsNotMet,
			Rationale: []domain.RationaleEntry{{
				Rule: RuleNotMet,
				Text: "none of dysuria, urgency or frequency present",
			}},
		}
	}

	rationale := []domain.RationaleEntry{{Rule: RuleSymptomatic, Text: "qualifying symptoms: " + qualifying(p)}}
	if s := supporting(p); s != "" {
		rationale = append(rationale, domain.RationaleEntry{Rule: RuleSupportingFindings, Text: s})
	}
	if p.History.AntibioticsLast90d {
		rationale = append(rationale, domain.RationaleEntry{
			Rule: RuleRecentAntibiotics,
			Text: "antibiotics in the last 90 days, resistance risk noted for safety review",
		})
	}

	sel := Select(p, t)
	rationale = append(rationale, sel.Rationale...)
	if sel.Entry == nil {
		return refer(domain.DecisionReferComplicated, rationale)
	}
	return domain.AssessmentOutcome{
		Decision:         domain.DecisionRecommendTreatment,
		Rationale:        rationale,
		Regimen:          sel.Entry.Regimen(),
		InteractionFlags: sel.Flags,
	}
}

func refer(d domain.Decision, rationale []domain.RationaleEntry) domain.AssessmentOutcome {
	return domain.AssessmentOutcome{
		Decision:           d,
		Rationale:          rationale,
		RequiresEscalation: true,
	}
}

func qualifying(p domain.PatientState) string {
	var s []string
	if p.Symptoms.Dysuria {
		s = append(s, "dysuria")
	}
	if p.Symptoms.Urgency {
		s = append(s, "urgency")
	}
	if p.Symptoms.Frequency {
		s = append(s, "frequency")
	}
	return strings.Join(s, ", ")
}

func supporting(p domain.PatientState) string {
	var s []string
	if p.Symptoms.SuprapubicPain {
		s = append(s, "suprapubic pain")
	}
	if p.Symptoms.Hematuria {
		s = append(s, "microscopic hematuria")
	}
	return strings.Join(s, ", ")
}
