package orchestrator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/triage/pkg/domain"
	"github.com/aretw0/triage/pkg/orchestrator"
)

func TestRefine_WithdrawalTags(t *testing.T) {
	tbl, err := defaultSet(t).Table("CA-ON")
	require.NoError(t, err)

	nitro, ok := tbl.Lookup("nitrofurantoin")
	require.True(t, ok)
	tmp, ok := tbl.Lookup("trimethoprim")
	require.True(t, ok)

	cases := []struct {
		name      string
		candidate *domain.ProposedRegimen
		flags     []string
		wantAgent string
	}{
		{"contraindication tag", nitro.Regimen(), []string{"contraindication.nitrofurantoin"}, "trimethoprim-sulfamethoxazole"},
		{"allergy tag", nitro.Regimen(), []string{"Allergy.Nitrofurantoin"}, "trimethoprim-sulfamethoxazole"},
		{"bare agent", nitro.Regimen(), []string{" nitrofurantoin "}, "trimethoprim-sulfamethoxazole"},
		{"free text mention", nitro.Regimen(), []string{"no nitrofurantoin allergy reported, counsel to take with food"}, "nitrofurantoin"},
		{"interaction tag annotates", nitro.Regimen(), []string{"interaction.nitrofurantoin.antacid"}, "nitrofurantoin"},
		{"other agent tag", tmp.Regimen(), []string{"contraindication.trimethoprim-sulfamethoxazole"}, "trimethoprim"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			review := &domain.SafetyReview{Approval: domain.ApprovalConditional, RiskLevel: domain.RiskLow, Flags: tc.flags}
			ref := orchestrator.Refine(uncomplicated(), tbl, tc.candidate, review)
			require.NotNil(t, ref.Final)
			assert.Equal(t, tc.wantAgent, ref.Final.Agent)
		})
	}
}
