package agents_test

import (
	"context"
	"testing"

	"github.com/aretw0/triage/pkg/adapters/agents"
	"github.com/aretw0/triage/pkg/domain"
	"github.com/aretw0/triage/pkg/formulary"
	"github.com/aretw0/triage/pkg/orchestrator"
	"github.com/aretw0/triage/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func localAgents(t *testing.T) (*formulary.Set, *agents.Local) {
	t.Helper()
	set, err := formulary.Default()
	require.NoError(t, err)
	return set, agents.NewLocal(set)
}

func TestLocal_ReviewFlagsInteractions(t *testing.T) {
	_, l := localAgents(t)
	review, err := l.Review(context.Background(), ports.SafetyReviewRequest{
		Regimen: &domain.ProposedRegimen{Agent: "trimethoprim-sulfamethoxazole"},
		Outcome: domain.AssessmentOutcome{InteractionFlags: []string{"interaction.trimethoprim-sulfamethoxazole.acei"}},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalApprove, review.Approval)
	assert.Equal(t, domain.RiskModerate, review.RiskLevel)
	assert.Equal(t, []string{"monitor: acei"}, review.Flags)
	assert.NoError(t, review.Check())
}

func TestLocal_ReviewWithoutRegimenRefers(t *testing.T) {
	_, l := localAgents(t)
	review, err := l.Review(context.Background(), ports.SafetyReviewRequest{})
	require.NoError(t, err)
	assert.True(t, review.Approval.Blocks())
}

func TestLocal_EndToEnd(t *testing.T) {
	set, l := localAgents(t)
	o := orchestrator.New(set,
		orchestrator.WithReasoner(l),
		orchestrator.WithSafetyReviewer(l),
		orchestrator.WithSummarizer(l),
		orchestrator.WithVerifier(l),
		orchestrator.WithEvidenceSynthesizer(l),
	)

	// Scenario D: sulfa-free but nitrofurantoin allergic, on an ACE inhibitor.
	p := domain.PatientState{
		Demographics: domain.Demographics{Age: 45, Sex: domain.SexFemale, PregnancyStatus: domain.PregnancyNo},
		Symptoms:     domain.Symptoms{Dysuria: true, Frequency: true},
		History:      domain.History{Allergies: []string{"nitrofurantoin"}, Meds: []string{"lisinopril"}},
		LocaleCode:   "CA-ON",
	}
	b, err := o.Run(context.Background(), orchestrator.Request{Patient: p})
	require.NoError(t, err)

	assert.Equal(t, domain.StageFinal, b.Terminal)
	require.NotNil(t, b.FinalRegimen)
	assert.Equal(t, "trimethoprim-sulfamethoxazole", b.FinalRegimen.Agent)
	require.NotNil(t, b.Validation)
	assert.True(t, b.Validation.Pass)
	assert.Equal(t, domain.SeverityModerate, b.Validation.Severity)
	require.NotNil(t, b.Verification)
	assert.Equal(t, domain.VerdictNeedsReview, b.Verification.Verdict)
	assert.NotEmpty(t, b.Sources)
	assert.Empty(t, b.Degradations)

	rec, ok := b.Stage(domain.StageReasoning)
	require.True(t, ok)
	assert.Equal(t, agents.LocalVersion, rec.ComponentVersion)
}
