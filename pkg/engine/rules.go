package engine

import "github.com/aretw0/triage/pkg/domain"

// Rule identifiers. Selection and interaction rules are suffixed with the
// agent and class they concern.
const (
	RuleRecentAntibiotics    domain.RuleID = "history.recent_antibiotics"
	RuleAsymptomaticExcluded domain.RuleID = "exclusion.asymptomatic_bacteriuria"
	RuleSymptomatic          domain.RuleID = "criteria.symptomatic"
	RuleSupportingFindings   domain.RuleID = "criteria.supporting_findings"
	RuleNotMet               domain.RuleID = "criteria.not_met"
	RuleNoSafeOption         domain.RuleID = "selection.no_safe_option"
)

type check struct {
	id   domain.RuleID
	text string
	hit  func(p domain.PatientState) bool
}

var redFlagChecks = []check{
	{"red_flag.fever", "fever suggests upper tract or systemic infection", func(p domain.PatientState) bool { return p.RedFlags.Fever }},
	{"red_flag.rigors", "rigors suggest bacteremia", func(p domain.PatientState) bool { return p.RedFlags.Rigors }},
	{"red_flag.flank_pain", "flank pain suggests pyelonephritis", func(p domain.PatientState) bool { return p.RedFlags.FlankPain }},
	{"red_flag.back_pain", "back pain suggests pyelonephritis", func(p domain.PatientState) bool { return p.RedFlags.BackPain }},
	{"red_flag.nausea_vomiting", "nausea or vomiting suggests systemic infection", func(p domain.PatientState) bool { return p.RedFlags.NauseaVomiting }},
	{"red_flag.systemic", "systemic illness reported", func(p domain.PatientState) bool { return p.RedFlags.Systemic }},
	{"red_flag.confusion", "new confusion may indicate systemic infection", func(p domain.PatientState) bool { return p.Symptoms.Confusion }},
	{"red_flag.delirium", "delirium may indicate systemic infection", func(p domain.PatientState) bool { return p.Symptoms.Delirium }},
	{"red_flag.gross_hematuria", "gross hematuria requires clinical assessment", func(p domain.PatientState) bool { return p.Symptoms.GrossHematuria }},
}

func complicatingChecks(t threshold) []check {
	return []check{
		{"complicating.male_sex", "urinary tract infection in males is complicated", func(p domain.PatientState) bool { return p.Demographics.Sex == domain.SexMale }},
		{"complicating.pregnancy", "pregnancy precludes empiric first-line treatment", func(p domain.PatientState) bool {
			return p.Demographics.PregnancyStatus == domain.PregnancyYes
		}},
		{"complicating.pediatric", "patients under 12 require clinical assessment", func(p domain.PatientState) bool { return p.Demographics.Age < pediatricAge }},
		{"complicating.catheter", "indwelling catheter", func(p domain.PatientState) bool { return p.History.Catheter }},
		{"complicating.neurogenic_bladder", "neurogenic bladder", func(p domain.PatientState) bool { return p.History.NeurogenicBladder }},
		{"complicating.stones", "urinary tract stones", func(p domain.PatientState) bool { return p.History.Stones }},
		{"complicating.immunocompromised", "immunocompromised host", func(p domain.PatientState) bool { return p.History.Immunocompromised }},
		{"complicating.renal_impairment", t.text, func(p domain.PatientState) bool { return p.Demographics.Renal.Below(t.egfr) }},
	}
}

var recurrenceChecks = []check{
	{"recurrence.relapse_within_4w", "relapse within 4 weeks of treatment", func(p domain.PatientState) bool { return p.Recurrence.RelapseWithin4w }},
	{"recurrence.recurrent_6m", "2 or more episodes in 6 months", func(p domain.PatientState) bool { return p.Recurrence.Recurrent6m }},
	{"recurrence.recurrent_12m", "3 or more episodes in 12 months", func(p domain.PatientState) bool { return p.Recurrence.Recurrent12m }},
}

const pediatricAge = 12

type threshold struct {
	egfr float64
	text string
}

func fire(p domain.PatientState, checks []check) []domain.RationaleEntry {
	var out []domain.RationaleEntry
	for _, c := range checks {
		if c.hit(p) {
			out = append(out, domain.RationaleEntry{Rule: c.id, Text: c.text})
		}
	}
	return out
}
