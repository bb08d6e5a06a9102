package tui_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/triage"
	"github.com/aretw0/triage/internal/presentation/tui"
	"github.com/aretw0/triage/pkg/audit"
	"github.com/aretw0/triage/pkg/domain"
)

func treatedBundle() *audit.Bundle {
	conf := 0.82
	return &audit.Bundle{
		ID:            "a-1",
		SchemaVersion: audit.SchemaVersion,
		Inputs:        domain.PatientState{LocaleCode: "CA-ON"},
		Trail: []audit.StageRecord{
			{Stage: domain.StageIntake, ComponentVersion: "orchestrator"},
			{Stage: domain.StageVerify, ComponentVersion: "local", Error: "verifier unavailable"},
		},
		Outcome: &domain.AssessmentOutcome{
			Decision:  domain.DecisionRecommendTreatment,
			Rationale: []domain.RationaleEntry{{Rule: "select.first_line", Text: "nitrofurantoin is first line"}},
		},
		FinalDecision: domain.DecisionRecommendTreatment,
		FinalRegimen:  &domain.ProposedRegimen{Agent: "nitrofurantoin", Dose: "100 mg", Frequency: "BID", Duration: "5 days"},
		Validation:    &domain.ValidationResult{Severity: domain.SeverityNone, Pass: true},
		FollowUp: &domain.FollowUpPlan{
			ReassessWithin: "48-72 hours",
			SeekCareIf:     []string{"fever"},
		},
		Sources:         []domain.Citation{{Title: "IDSA 2010", URL: "https://example.org/idsa"}},
		Degradations:    []string{"verify"},
		Confidence:      &conf,
		Terminal:        domain.StageFinal,
		SignoffRequired: true,
		Path:            audit.PathStandard,
		Consensus:       audit.LabelTreatSignoff,
	}
}

func TestBundleMarkdown(t *testing.T) {
	md := tui.BundleMarkdown(treatedBundle())

	for _, want := range []string{
		"# Assessment a-1",
		"**" + audit.LabelTreatSignoff + "**",
		"| Decision | `recommend_treatment` |",
		"| Prescriber sign-off | yes |",
		"| Confidence | 0.82 |",
		"**nitrofurantoin** 100 mg, BID for 5 days",
		"- `select.first_line` nitrofurantoin is first line",
		"Result: **pass** (severity `none`)",
		"Reassess within: 48-72 hours",
		"### Seek care if",
		"- [IDSA 2010](https://example.org/idsa)",
		"## Degradations",
		"| `verify` | local | verifier unavailable |",
	} {
		assert.Contains(t, md, want)
	}
	assert.NotContains(t, md, "Interrupt reason")
}

func TestBundleMarkdown_Interrupted(t *testing.T) {
	reason := domain.InterruptRedFlag
	md := tui.BundleMarkdown(&audit.Bundle{
		ID:                 "a-2",
		FinalDecision:      domain.DecisionReferPyelonephritis,
		Terminal:           domain.StageInterrupted,
		InterruptReason:    &reason,
		RequiresEscalation: true,
		Path:               audit.PathDeterministicInterrupt,
		Consensus:          audit.LabelDeterministicInterrupt,
	})

	assert.Contains(t, md, "| Interrupt reason | `red_flag` |")
	assert.Contains(t, md, "| Requires escalation | yes |")
	assert.NotContains(t, md, "## Regimen")
	assert.NotContains(t, md, "| Confidence |")
}

func TestPlanMarkdown(t *testing.T) {
	md := tui.PlanMarkdown(triage.Plan{
		Outcome: domain.AssessmentOutcome{
			Decision:         domain.DecisionRecommendTreatment,
			Regimen:          &domain.ProposedRegimen{Agent: "fosfomycin", Dose: "3 g", Frequency: "once", Duration: "1 day"},
			InteractionFlags: []string{"monitor: acei"},
		},
		Validation: &domain.ValidationResult{
			Severity: domain.SeverityModerate,
			Pass:     true,
			Findings: []domain.Finding{{Rule: "interaction.acei", Severity: domain.SeverityModerate, Annotation: "monitor potassium"}},
		},
		SignoffRequired: true,
		EngineVersion:   "engine-1",
	})

	assert.Contains(t, md, "# Plan: `recommend_treatment`")
	assert.Contains(t, md, "- Prescriber sign-off: yes")
	assert.Contains(t, md, "**fosfomycin** 3 g, once for 1 day")
	assert.Contains(t, md, "- monitor: acei")
	assert.Contains(t, md, "- `interaction.acei` [moderate] monitor potassium")
	assert.NotContains(t, md, "## Follow-up")
}

func TestNewRenderer(t *testing.T) {
	render, err := tui.NewRenderer(100)
	require.NoError(t, err)

	out, err := render(tui.BundleMarkdown(treatedBundle()))
	require.NoError(t, err)
	assert.Contains(t, out, "nitrofurantoin")
}

func TestHeadline(t *testing.T) {
	b := treatedBundle()
	assert.Contains(t, tui.Headline(b).String(), audit.LabelTreatSignoff)
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf)
	assert.Contains(t, buf.String(), "|___/")
}
