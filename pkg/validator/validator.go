// Package validator implements the State Validator: the last deterministic
// safety re-check before an assessment produces output.
package validator

import (
	"context"
	"fmt"

	"github.com/aretw0/triage/pkg/domain"
	"github.com/aretw0/triage/pkg/formulary"
)

// Rule identifiers fired by Validate.
const (
	RuleUnknownDecision          domain.RuleID = "validator.schema.unknown_decision"
	RuleRegimenOnNonTreatment    domain.RuleID = "validator.schema.regimen_without_treatment"
	RuleMissingRegimen           domain.RuleID = "validator.schema.missing_regimen"
	RuleSafetyRejected           domain.RuleID = "validator.safety_rejected_regimen_present"
	RuleDoseMismatch             domain.RuleID = "validator.dose_mismatch"
	RuleNotFirstLine             domain.RuleID = "validator.not_first_line"
	RuleAllergyConflict          domain.RuleID = "validator.allergy_conflict"
	RuleRenalContraindication    domain.RuleID = "validator.renal_contraindication"
	RulePregnancyContraindicated domain.RuleID = "validator.pregnancy_contraindication"
	RuleAgeRestriction           domain.RuleID = "validator.age_restriction"
)

// Validate checks the final decision and regimen against t. Schema checks run
// on every path; regimen checks run only when treatment is recommended. The
// only error is a regimen naming an agent missing from t.
func Validate(req domain.ValidationRequest, t *formulary.Table) (domain.ValidationResult, error) {
	var findings []domain.Finding
	high := func(rule domain.RuleID, note string) {
		findings = append(findings, domain.Finding{Rule: rule, Severity: domain.SeverityHigh, Annotation: note})
	}

	p, r := req.Patient, req.Regimen
	treating := req.Decision == domain.DecisionRecommendTreatment

	switch {
	case !req.Decision.Valid():
		high(RuleUnknownDecision, fmt.Sprintf("decision %q is not recognized", req.Decision))
	case treating && r == nil:
		high(RuleMissingRegimen, "treatment recommended without a regimen")
	case !treating && r != nil:
		high(RuleRegimenOnNonTreatment, fmt.Sprintf("regimen %s attached to %s", r.Agent, req.Decision))
	}
	if req.Review != nil && req.Review.Approval.Blocks() && r != nil {
		high(RuleSafetyRejected, fmt.Sprintf("safety review recommended %s", req.Review.Approval))
	}

	if !treating || r == nil {
		return domain.NewValidationResult(findings), nil
	}

	e, ok := t.Lookup(r.Agent)
	if !ok {
		return domain.ValidationResult{}, fmt.Errorf("agent %q in %s: %w", r.Agent, t.Locale, formulary.ErrEntryNotFound)
	}
	if !t.IsCanonical(r) {
		high(RuleDoseMismatch, fmt.Sprintf("expected %s %s for %s", e.Dose, e.Frequency, e.Duration))
	}
	if !e.FirstLine || e.Class == formulary.ClassFluoroquinolone {
		high(RuleNotFirstLine, e.Agent+" is not a first-line agent")
	}
	if p.HasAllergy(e.AllergyClasses...) {
		high(RuleAllergyConflict, "declared allergy to "+e.Class+" class")
	}
	if e.MinEGFR > 0 && p.Demographics.Renal.Below(e.MinEGFR) {
		high(RuleRenalContraindication, fmt.Sprintf("%s requires eGFR of at least %g mL/min", e.Agent, e.MinEGFR))
	}
	if e.PregnancyContraindicated && p.Demographics.PregnancyStatus == domain.PregnancyYes {
		high(RulePregnancyContraindicated, e.Agent+" is contraindicated in pregnancy")
	}
	if e.MinAge > 0 && p.Demographics.Age < e.MinAge {
		high(RuleAgeRestriction, fmt.Sprintf("%s is not for patients under %d", e.Agent, e.MinAge))
	}
	for _, i := range t.InteractionsFor(e.Agent, p.MedClasses()) {
		findings = append(findings, domain.Finding{
			Rule:       domain.RuleID("validator." + i.Tag()),
			Severity:   i.Severity,
			Annotation: i.Annotation,
		})
	}

	return domain.NewValidationResult(findings), nil
}

// Validator adapts Validate to the orchestrator's StateValidator port,
// resolving the table from the patient's locale.
type Validator struct {
	set *formulary.Set
}

// New creates a validator over the given formulary set.
func New(set *formulary.Set) *Validator {
	return &Validator{set: set}
}

// Validate implements ports.StateValidator.
func (v *Validator) Validate(ctx context.Context, req domain.ValidationRequest) (domain.ValidationResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.ValidationResult{}, err
	}
	t, err := v.set.Table(req.Patient.LocaleCode)
	if err != nil {
		return domain.ValidationResult{}, err
	}
	return Validate(req, t)
}

// Version identifies the rule set for the audit trail.
func (v *Validator) Version() string { return Version }

// Version of the validation rules.
const Version = "validator/1"
