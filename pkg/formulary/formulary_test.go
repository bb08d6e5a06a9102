package formulary_test

import (
	"strings"
	"testing"

	"github.com/aretw0/triage/pkg/domain"
	"github.com/aretw0/triage/pkg/formulary"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Tables(t *testing.T) {
	set, err := formulary.Default()
	require.NoError(t, err)

	assert.Equal(t, "CA-ON", set.DefaultLocale())
	assert.Equal(t, []string{"CA-ON", "GB-ENG"}, set.Locales())

	tbl, err := set.Table("")
	require.NoError(t, err)
	assert.Equal(t, "CA-ON", tbl.Locale)
	assert.Equal(t, 30.0, tbl.ComplicatedBelowEGFR)
	assert.Equal(t, []string{"nitrofurantoin", "trimethoprim-sulfamethoxazole", "fosfomycin", "cephalexin"}, tbl.SelectionOrder)

	nitro, ok := tbl.Lookup("nitrofurantoin")
	require.True(t, ok)
	assert.Equal(t, &domain.ProposedRegimen{Agent: "nitrofurantoin", Dose: "100 mg", Frequency: "BID", Duration: "5 days"}, nitro.Regimen())
	assert.Equal(t, 30.0, nitro.MinEGFR)

	cipro, ok := tbl.Lookup("ciprofloxacin")
	require.True(t, ok)
	assert.False(t, cipro.FirstLine)
	assert.Equal(t, formulary.ClassFluoroquinolone, cipro.Class)
}

func TestSet_TableLocaleCaseInsensitive(t *testing.T) {
	set, err := formulary.Default()
	require.NoError(t, err)

	tbl, err := set.Table("gb-eng")
	require.NoError(t, err)
	nitro, _ := tbl.Lookup("nitrofurantoin")
	assert.Equal(t, 45.0, nitro.MinEGFR)

	_, err = set.Table("XX")
	assert.ErrorIs(t, err, formulary.ErrLocaleNotFound)
}

func TestTable_IsCanonical(t *testing.T) {
	set, _ := formulary.Default()
	tbl, _ := set.Table("CA-ON")

	assert.True(t, tbl.IsCanonical(&domain.ProposedRegimen{Agent: "fosfomycin", Dose: "3 g", Frequency: "once", Duration: "single dose"}))
	assert.False(t, tbl.IsCanonical(&domain.ProposedRegimen{Agent: "nitrofurantoin", Dose: "100 mg", Frequency: "BID", Duration: "7 days"}))
	assert.False(t, tbl.IsCanonical(&domain.ProposedRegimen{Agent: "amoxicillin", Dose: "500 mg", Frequency: "TID", Duration: "5 days"}))
	assert.False(t, tbl.IsCanonical(nil))
}

func TestTable_InteractionsFor(t *testing.T) {
	set, _ := formulary.Default()
	tbl, _ := set.Table("CA-ON")

	got := tbl.InteractionsFor("trimethoprim-sulfamethoxazole", []string{"arb", "acei", "statin"})
	require.Len(t, got, 2)
	assert.Equal(t, "acei", got[0].Class, "table order is preserved")
	assert.Equal(t, domain.SeverityModerate, got[0].Severity)
	assert.Equal(t, "interaction.trimethoprim-sulfamethoxazole.acei", got[0].Tag())

	assert.Empty(t, tbl.InteractionsFor("nitrofurantoin", []string{"acei"}))
}

const customSet = `
default_locale: XX
tables:
  - locale: XX
    complicated_below_egfr: 15
    selection_order: [a]
    agents:
      - {agent: a, class: c, dose: 1 mg, frequency: BID, duration: 3 days}
`

func TestParse(t *testing.T) {
	set, err := formulary.Parse([]byte(customSet))
	require.NoError(t, err)
	tbl, err := set.Table("xx")
	require.NoError(t, err)
	assert.Equal(t, 15.0, tbl.ComplicatedBelowEGFR)
	assert.Equal(t, []string{"a"}, tbl.Agents())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing default", "default_locale: YY\ntables: []\n"},
		{"unknown selection", "default_locale: XX\ntables:\n  - locale: XX\n    selection_order: [b]\n"},
		{"incomplete entry", "default_locale: XX\ntables:\n  - locale: XX\n    agents:\n      - {agent: a}\n"},
		{"bad severity", "default_locale: XX\ntables:\n  - locale: XX\n    interactions:\n      - {agent: a, class: b, severity: none}\n"},
		{"malformed", "tables: ["},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := formulary.Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestSet_WithOverrides(t *testing.T) {
	base, err := formulary.Default()
	require.NoError(t, err)

	over, err := formulary.Parse([]byte(`
default_locale: CA-ON
tables:
  - locale: CA-ON
    complicated_below_egfr: 15
    agents:
      - {agent: nitrofurantoin, class: nitrofuran, dose: 100 mg, frequency: BID, duration: 7 days, min_egfr: 30, first_line: true}
  - locale: FR
    selection_order: [fosfomycin]
    agents:
      - {agent: fosfomycin, class: phosphonic, dose: 3 g, frequency: once, duration: single dose, first_line: true}
`))
	require.NoError(t, err)
	ca, _ := over.Table("CA-ON")
	fr, _ := over.Table("FR")

	merged, err := base.WithOverrides(ca, fr)
	require.NoError(t, err)
	assert.Equal(t, []string{"CA-ON", "FR", "GB-ENG"}, merged.Locales())

	tbl, _ := merged.Table("CA-ON")
	assert.Equal(t, 15.0, tbl.ComplicatedBelowEGFR)
	nitro, _ := tbl.Lookup("nitrofurantoin")
	assert.Equal(t, "7 days", nitro.Duration)
	_, ok := tbl.Lookup("cephalexin")
	assert.True(t, ok, "base entries survive a partial override")
	assert.Equal(t, []string{"nitrofurantoin", "trimethoprim-sulfamethoxazole", "fosfomycin", "cephalexin"}, tbl.SelectionOrder)

	// the base set is unchanged
	orig, _ := base.Table("CA-ON")
	nitro, _ = orig.Lookup("nitrofurantoin")
	assert.Equal(t, "5 days", nitro.Duration)
}

func TestSet_WithDefaultLocale(t *testing.T) {
	base, err := formulary.Default()
	require.NoError(t, err)

	_, err = base.WithDefaultLocale("xx")
	assert.ErrorIs(t, err, formulary.ErrLocaleNotFound)

	locale := base.Locales()[len(base.Locales())-1]
	set, err := base.WithDefaultLocale(strings.ToLower(locale))
	require.NoError(t, err)
	assert.Equal(t, locale, set.DefaultLocale())

	tbl, err := set.Table("")
	require.NoError(t, err)
	assert.Equal(t, locale, tbl.Locale)
}
