package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/triage/internal/presentation/graph"
	"github.com/aretw0/triage/pkg/orchestrator"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the orchestrator state machine",
	Long: `Outputs a Mermaid diagram (graph TD) of the orchestrator states and their
allowed transitions. With --bundle, the stages recorded in that stored
assessment are highlighted and its terminal state marked current.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var overlay *graph.GraphOverlay

		if id, _ := cmd.Flags().GetString("bundle"); id != "" {
			app, err := openApp(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			b, err := app.Service.Bundle(cmd.Context(), id)
			if err != nil {
				return err
			}
			overlay = &graph.GraphOverlay{Current: b.Terminal}
			for _, r := range b.Trail {
				overlay.Visited = append(overlay.Visited, r.Stage)
			}
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(orchestrator.Transitions(), overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("bundle", "", "Highlight the trail of a stored assessment")
}
