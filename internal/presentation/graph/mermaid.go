package graph

import (
	"fmt"
	"slices"
	"strings"

	"github.com/aretw0/triage/pkg/domain"
)

// GraphOverlay contains run data to highlight on the diagram.
type GraphOverlay struct {
	Visited []domain.Stage
	Current domain.Stage
}

// GenerateMermaid produces a Mermaid flowchart from the orchestrator's
// transition table. It applies semantic styling:
// - Intake: ((Circle))
// - Terminal states: [[Subroutine]]
// - SafetyReview: {Decision}
// - Default: [Rectangle]
// Edges into Interrupted are dotted. Overlay styles are applied when provided.
func GenerateMermaid(edges map[domain.Stage][]domain.Stage, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	stages := make([]domain.Stage, 0, len(edges))
	for s := range edges {
		stages = append(stages, s)
	}
	slices.SortFunc(stages, func(a, b domain.Stage) int {
		return order(a) - order(b)
	})

	for _, s := range stages {
		id := sanitizeMermaidID(string(s))
		opener, closer := "[", "]"
		switch {
		case s == domain.StageIntake:
			opener, closer = "((", "))"
		case len(edges[s]) == 0:
			opener, closer = "[[", "]]"
		case s == domain.StageSafetyReview:
			opener, closer = "{", "}"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", id, opener, s, closer)
	}

	for _, from := range stages {
		for _, to := range edges[from] {
			arrow := "-->"
			switch {
			case to == domain.StageInterrupted:
				arrow = "-.->"
			case from == domain.StageSafetyReview && to == domain.StageReasoning:
				arrow = `-- "feedback" -->`
			}
			fmt.Fprintf(&sb, "    %s %s %s\n", sanitizeMermaidID(string(from)), arrow, sanitizeMermaidID(string(to)))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text keeps contrast on light fills in both themes.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, s := range overlay.Visited {
			if _, ok := edges[s]; !ok {
				// Enrichment sub-stages are recorded in the trail but are not states.
				continue
			}
			id := sanitizeMermaidID(string(s))
			if !seen[id] {
				seen[id] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", id)
			}
		}
		if overlay.Current != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(string(overlay.Current)))
		}
	}

	return sb.String()
}

var pipeline = []domain.Stage{
	domain.StageIntake,
	domain.StageGateCheck,
	domain.StageAssessed,
	domain.StageRouted,
	domain.StageReasoning,
	domain.StageSafetyReview,
	domain.StageRefine,
	domain.StageValidate,
	domain.StageAuditAssembly,
	domain.StageEnrichment,
	domain.StageSignoffRequired,
	domain.StageFinal,
	domain.StageInterrupted,
}

func order(s domain.Stage) int {
	if i := slices.Index(pipeline, s); i >= 0 {
		return i
	}
	return len(pipeline)
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
