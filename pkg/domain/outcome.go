package domain

// Decision is the triage conclusion of the decision engine.
type Decision string

const (
	DecisionRecommendTreatment  Decision = "recommend_treatment"
	DecisionReferComplicated    Decision = "refer_complicated"
	DecisionReferRecurrence     Decision = "refer_recurrence"
	DecisionReferPyelonephritis Decision = "refer_pyelonephritis_suspected"
	DecisionNoAntibioticsNotMet Decision = "no_antibiotics_not_met"
)

// IsReferral reports whether the decision sends the patient to a clinician.
func (d Decision) IsReferral() bool {
	switch d {
	case DecisionReferComplicated, DecisionReferRecurrence, DecisionReferPyelonephritis:
		return true
	}
	return false
}

// Valid reports whether d is a known decision.
func (d Decision) Valid() bool {
	return d.IsReferral() || d == DecisionRecommendTreatment || d == DecisionNoAntibioticsNotMet
}

// RuleID is the stable identifier of a rule in the rationale trail.
type RuleID string

// RationaleEntry records one fired rule, in evaluation order.
type RationaleEntry struct {
	Rule RuleID `json:"rule"`
	Text string `json:"text"`
}

// ProposedRegimen is drawn verbatim from a formulary table entry.
type ProposedRegimen struct {
	Agent     string `json:"agent"`
	Dose      string `json:"dose"`
	Frequency string `json:"frequency"`
	Duration  string `json:"duration"`
}

// Clone returns a copy of r, or nil.
func (r *ProposedRegimen) Clone() *ProposedRegimen {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// Equal reports whether both regimens are nil or identical.
func (r *ProposedRegimen) Equal(o *ProposedRegimen) bool {
	if r == nil || o == nil {
		return r == o
	}
	return *r == *o
}

// AssessmentOutcome is produced by the decision engine.
type AssessmentOutcome struct {
	Decision           Decision         `json:"decision"`
	Rationale          []RationaleEntry `json:"rationale"`
	Regimen            *ProposedRegimen `json:"regimen,omitempty"`
	RequiresEscalation bool             `json:"requires_escalation"`
	// InteractionFlags are moderate interaction tags found during selection,
	// surfaced to the safety-review stage without blocking.
	InteractionFlags []string `json:"interaction_flags,omitempty"`
}

// Rules returns the rule identifiers of the rationale trail.
func (o AssessmentOutcome) Rules() []RuleID {
	ids := make([]RuleID, len(o.Rationale))
	for i, r := range o.Rationale {
		ids[i] = r.Rule
	}
	return ids
}

// FollowUpPlan is the reassessment plan attached to treatment paths.
type FollowUpPlan struct {
	ReassessWithin      string   `json:"reassess_within"`
	MonitoringChecklist []string `json:"monitoring_checklist,omitempty"`
	SpecialInstructions []string `json:"special_instructions,omitempty"`
	SeekCareIf          []string `json:"seek_care_if"`
	ProviderActions     []string `json:"provider_actions"`
}
