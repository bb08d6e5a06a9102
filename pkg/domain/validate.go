package domain

import "fmt"

const (
	maxAge       = 120
	minLocaleLen = 2
	maxLocaleLen = 10
)

// Validate checks the structural constraints of a patient state. Failures are
// returned as an *AggregateError wrapping ErrInvalidPatient.
func (p PatientState) Validate() error {
	var errs []error
	add := func(key, reason string, value any) {
		errs = append(errs, &ValidationError{Key: key, Reason: reason, Value: value})
	}

	d := p.Demographics
	if d.Age < 0 || d.Age > maxAge {
		add("demographics.age", fmt.Sprintf("must be between 0 and %d", maxAge), d.Age)
	}
	switch d.Sex {
	case SexFemale, SexMale, SexOther:
	default:
		add("demographics.sex", "must be one of female, male, other", string(d.Sex))
	}
	switch d.PregnancyStatus {
	case PregnancyYes, PregnancyNo, PregnancyUnknown, "":
	default:
		add("demographics.pregnancy_status", "must be one of yes, no, unknown", string(d.PregnancyStatus))
	}
	if d.Sex == SexMale && d.PregnancyStatus == PregnancyYes {
		add("demographics.pregnancy_status", "cannot be yes when sex is male", nil)
	}
	if r := d.Renal; r != nil {
		switch r.Summary {
		case RenalNormal, RenalImpaired, RenalFailure, RenalUnknown, "":
		default:
			add("demographics.renal_function.summary", "must be one of normal, impaired, failure, unknown", string(r.Summary))
		}
		if r.EGFR != nil && *r.EGFR < 0 {
			add("demographics.renal_function.egfr_ml_min", "must not be negative", *r.EGFR)
		}
	}
	// An empty locale selects the formulary default.
	if n := len(p.LocaleCode); n != 0 && (n < minLocaleLen || n > maxLocaleLen) {
		add("locale_code", fmt.Sprintf("must be %d to %d characters", minLocaleLen, maxLocaleLen), p.LocaleCode)
	}

	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}
