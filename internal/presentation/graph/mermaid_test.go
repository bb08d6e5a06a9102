package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/triage/internal/presentation/graph"
	"github.com/aretw0/triage/pkg/domain"
	"github.com/aretw0/triage/pkg/orchestrator"
	"github.com/stretchr/testify/assert"
)

func TestGenerateMermaid(t *testing.T) {
	got := graph.GenerateMermaid(orchestrator.Transitions(), nil)

	tests := []struct {
		name     string
		contains string
	}{
		{"Intake Shape", `intake(("intake"))`},
		{"Terminal Shape", `final[["final"]]`},
		{"Interrupted Shape", `interrupted[["interrupted"]]`},
		{"Safety Review Shape", `safety_review{"safety_review"}`},
		{"Default Shape", `gate_check["gate_check"]`},
		{"Interrupt Edge Dotted", "gate_check -.-> interrupted"},
		{"Feedback Edge Labeled", `safety_review -- "feedback" --> reasoning`},
		{"Plain Edge", "routed --> validate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, got, tt.contains)
		})
	}

	assert.True(t, strings.HasPrefix(got, "graph TD\n"))
	assert.Less(t, strings.Index(got, `intake((`), strings.Index(got, `final[[`))
	assert.NotContains(t, got, "Overlay Styles")
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	got := graph.GenerateMermaid(orchestrator.Transitions(), &graph.GraphOverlay{
		Visited: []domain.Stage{
			domain.StageIntake,
			domain.StageGateCheck,
			domain.StageGateCheck,
			domain.StageVerify,
		},
		Current: domain.StageFinal,
	})

	assert.Contains(t, got, "classDef visited")
	assert.Equal(t, 1, strings.Count(got, "class gate_check visited;"))
	assert.Contains(t, got, "class intake visited;")
	assert.NotContains(t, got, "class verify")
	assert.Contains(t, got, "class final current;")
}
