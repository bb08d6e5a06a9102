package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/triage/internal/cli"
)

var planCmd = &cobra.Command{
	Use:   "plan [patient.json]",
	Short: "Evaluate the decision engine only",
	Long: `Runs the deterministic decision engine and the state validator without
any advisory agent, and prints the plan. Nothing is stored.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := cli.ReadRequestFile(firstArg(args), cmd.InOrStdin())
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("output")
		printer, err := cli.NewPrinter(cmd.OutOrStdout(), format)
		if err != nil {
			return err
		}

		app, err := openApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		plan, err := app.Service.AssessAndPlan(req.Patient)
		if err != nil {
			return err
		}
		return printer.Plan(plan)
	},
}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.Flags().StringP("output", "o", cli.FormatAuto, "Output format: auto, json, markdown or pretty")
}
