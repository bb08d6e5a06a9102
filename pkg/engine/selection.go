package engine

import (
	"fmt"

	"github.com/aretw0/triage/pkg/domain"
	"github.com/aretw0/triage/pkg/formulary"
)

// Selection is the result of walking a table's selection order.
type Selection struct {
	// Entry is nil when no agent is eligible.
	Entry     *formulary.Entry
	Flags     []string
	Rationale []domain.RationaleEntry
}

// Select returns the first eligible agent of t's selection order, skipping
// any agent listed in skip. Fluoroquinolones and non first-line agents are
// never selected. A high-severity interaction excludes an agent; moderate
// interactions are flagged on the selection without blocking it.
func Select(p domain.PatientState, t *formulary.Table, skip ...string) Selection {
	var sel Selection
	classes := p.MedClasses()

	for _, agent := range t.SelectionOrder {
		e, _ := t.Lookup(agent)
		reason := Exclusion(p, e)
		if reason == "" && contains(skip, agent) {
			reason = "withdrawn after safety review"
		}

		var flags []domain.RationaleEntry
		if reason == "" {
			for _, i := range t.InteractionsFor(agent, classes) {
				if i.Severity == domain.SeverityHigh {
					reason = fmt.Sprintf("%s interaction: %s", i.Class, i.Annotation)
					break
				}
				flags = append(flags, domain.RationaleEntry{
					Rule: domain.RuleID(i.Tag()),
					Text: fmt.Sprintf("%s with %s: %s", agent, i.Class, i.Annotation),
				})
			}
		}

		if reason != "" {
			sel.Rationale = append(sel.Rationale, domain.RationaleEntry{
				Rule: domain.RuleID("selection.excluded." + agent),
				Text: reason,
			})
			continue
		}

		sel.Rationale = append(sel.Rationale, flags...)
		for _, f := range flags {
			sel.Flags = append(sel.Flags, string(f.Rule))
		}
		sel.Rationale = append(sel.Rationale, domain.RationaleEntry{
			Rule: domain.RuleID("selection." + agent),
			Text: fmt.Sprintf("%s %s %s for %s (%s formulary)", agent, e.Dose, e.Frequency, e.Duration, t.Locale),
		})
		sel.Entry = &e
		return sel
	}

	sel.Rationale = append(sel.Rationale, domain.RationaleEntry{
		Rule: RuleNoSafeOption,
		Text: "every formulary option is excluded for this patient",
	})
	return sel
}

// Exclusion returns why agent entry e cannot be used for p, or "" when it can.
// Interactions are not considered.
func Exclusion(p domain.PatientState, e formulary.Entry) string {
	switch {
	case !e.FirstLine || e.Class == formulary.ClassFluoroquinolone:
		return "not a first-line agent"
	case p.HasAllergy(e.AllergyClasses...):
		return "declared allergy to " + e.Class + " class"
	case e.MinEGFR > 0 && p.Demographics.Renal.Below(e.MinEGFR):
		return fmt.Sprintf("renal function below eGFR %g mL/min", e.MinEGFR)
	case e.MinAge > 0 && p.Demographics.Age < e.MinAge:
		return fmt.Sprintf("not for patients under %d", e.MinAge)
	case e.PregnancyContraindicated && p.Demographics.PregnancyStatus == domain.PregnancyYes:
		return "contraindicated in pregnancy"
	}
	return ""
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
