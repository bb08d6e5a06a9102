package engine

import (
	"github.com/aretw0/triage/pkg/domain"
	"github.com/aretw0/triage/pkg/formulary"
)

const elderlyAge = 65

// FollowUpPlan builds the reassessment plan for p. Monitoring items come from
// the formulary entry of regimen, when there is one.
func FollowUpPlan(p domain.PatientState, regimen *domain.ProposedRegimen, t *formulary.Table) domain.FollowUpPlan {
	plan := domain.FollowUpPlan{
		ReassessWithin: "48-72 hours",
		SeekCareIf: []string{
			"symptoms not improving within 48-72 hours",
			"fever, chills, flank or back pain develop",
			"nausea or vomiting prevents taking medication",
			"symptoms recur within 4 weeks of finishing treatment",
		},
		ProviderActions: []string{
			"complete documentation in the medical record",
			"notify the supervising prescriber",
			"schedule a 72-hour follow-up contact",
			"provide patient education materials",
		},
	}

	if regimen != nil && t != nil {
		if e, ok := t.Lookup(regimen.Agent); ok {
			plan.MonitoringChecklist = append(plan.MonitoringChecklist, e.Monitoring...)
		}
	}

	if p.Demographics.Age >= elderlyAge {
		plan.SpecialInstructions = append(plan.SpecialInstructions, "monitor closely for adverse effects in older adults")
	}
	if regimen != nil && t != nil {
		for _, i := range t.InteractionsFor(regimen.Agent, p.MedClasses()) {
			plan.SpecialInstructions = append(plan.SpecialInstructions, regimen.Agent+" with "+i.Class+": "+i.Annotation)
		}
	}
	if r := p.Demographics.Renal; r != nil && r.Summary == domain.RenalImpaired {
		plan.SpecialInstructions = append(plan.SpecialInstructions, "consider dose adjustment for renal impairment")
	}
	return plan
}
