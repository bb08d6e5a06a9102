package domain_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/triage/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func egfr(v float64) *float64 { return &v }

func validPatient() domain.PatientState {
	return domain.PatientState{
		Demographics: domain.Demographics{Age: 28, Sex: domain.SexFemale, PregnancyStatus: domain.PregnancyNo},
		Symptoms:     domain.Symptoms{Dysuria: true},
		LocaleCode:   "CA-ON",
	}
}

func TestNormalize_CanonicalTags(t *testing.T) {
	p := validPatient()
	p.LocaleCode = " ca-on "
	p.History.Allergies = []string{" Sulfa", "nitrofurantoin", "sulfa", ""}
	p.History.Meds = []string{"Lisinopril", "Spironolactone"}

	n := p.Normalize()

	assert.Equal(t, "CA-ON", n.LocaleCode)
	assert.Equal(t, []string{"nitrofurantoin", "sulfa"}, n.History.Allergies)
	assert.Equal(t, []string{"acei", "lisinopril", "potassium_sparing_diuretic", "spironolactone"}, n.History.Meds)
	assert.True(t, n.History.ACEIARBUse, "ACE inhibitor in meds should set ACEIARBUse")

	// the input is untouched
	assert.Equal(t, []string{"Lisinopril", "Spironolactone"}, p.History.Meds)
	assert.False(t, p.History.ACEIARBUse)
}

func TestNormalize_Idempotent(t *testing.T) {
	p := validPatient()
	p.History.Meds = []string{"losartan", "ibuprofen"}
	once := p.Normalize()
	assert.Equal(t, once, once.Normalize())
}

func TestClone_DeepCopy(t *testing.T) {
	p := validPatient()
	p.History.Allergies = []string{"sulfa"}
	p.Demographics.Renal = &domain.RenalFunction{Summary: domain.RenalImpaired, EGFR: egfr(40)}

	c := p.Clone()
	c.History.Allergies[0] = "changed"
	*c.Demographics.Renal.EGFR = 10

	assert.Equal(t, "sulfa", p.History.Allergies[0])
	assert.Equal(t, 40.0, *p.Demographics.Renal.EGFR)
}

func TestRenalFunction_Below(t *testing.T) {
	var missing *domain.RenalFunction
	assert.False(t, missing.Below(30))
	assert.True(t, (&domain.RenalFunction{EGFR: egfr(29.9)}).Below(30))
	assert.False(t, (&domain.RenalFunction{EGFR: egfr(30)}).Below(30))
	assert.True(t, (&domain.RenalFunction{Summary: domain.RenalFailure}).Below(30))
	assert.False(t, (&domain.RenalFunction{Summary: domain.RenalImpaired}).Below(30))
	// a measured value wins over the summary
	assert.False(t, (&domain.RenalFunction{Summary: domain.RenalFailure, EGFR: egfr(60)}).Below(30))
}

func TestValidate(t *testing.T) {
	require.NoError(t, validPatient().Validate())

	p := validPatient()
	p.Demographics.Age = -1
	p.Demographics.Sex = "unknown"
	p.LocaleCode = "X"
	p.Demographics.Renal = &domain.RenalFunction{EGFR: egfr(-5)}

	err := p.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidPatient))

	errs := domain.ValidationErrors(err)
	require.Len(t, errs, 4)
	var first *domain.ValidationError
	require.ErrorAs(t, errs[0], &first)
	assert.Equal(t, "demographics.age", first.Key)
}

func TestValidate_EmptyLocale(t *testing.T) {
	p := validPatient()
	p.LocaleCode = ""
	assert.NoError(t, p.Validate())
}

func TestValidate_MalePregnant(t *testing.T) {
	p := validPatient()
	p.Demographics.Sex = domain.SexMale
	p.Demographics.PregnancyStatus = domain.PregnancyYes

	errs := domain.ValidationErrors(p.Validate())
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "cannot be yes when sex is male")
}

func TestNewValidationResult(t *testing.T) {
	empty := domain.NewValidationResult(nil)
	assert.Equal(t, domain.SeverityNone, empty.Severity)
	assert.True(t, empty.Pass)
	assert.Empty(t, empty.RulesFired)

	res := domain.NewValidationResult([]domain.Finding{
		{Rule: "a", Severity: domain.SeverityModerate},
		{Rule: "b", Severity: domain.SeverityHigh},
		{Rule: "c", Severity: domain.SeverityModerate},
	})
	assert.Equal(t, []domain.RuleID{"a", "b", "c"}, res.RulesFired)
	assert.Equal(t, domain.SeverityHigh, res.Severity)
	assert.False(t, res.Pass)
}

func TestLifecycleHooks_Merge(t *testing.T) {
	var calls []string
	a := domain.LifecycleHooks{OnComplete: func(_ context.Context, _ *domain.CompletionEvent) { calls = append(calls, "a") }}
	b := domain.LifecycleHooks{OnComplete: func(_ context.Context, _ *domain.CompletionEvent) { calls = append(calls, "b") }}

	m := a.Merge(b)
	require.NotNil(t, m.OnComplete)
	assert.Nil(t, m.OnTransition)
	m.OnComplete(context.Background(), &domain.CompletionEvent{})
	assert.Equal(t, []string{"a", "b"}, calls)
}
