package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/triage/internal/cli"
	"github.com/aretw0/triage/internal/presentation/tui"
)

var assessCmd = &cobra.Command{
	Use:   "assess [patient.json]",
	Short: "Run a full assessment and print its audit bundle",
	Long: `Runs the orchestrated assessment for one patient state and prints the
finalized audit bundle. The input is read from the file argument, or from
stdin when it is omitted or "-". It may be a bare patient state or
{"id": ..., "patient": ...}.

Submitting an ID that is already stored returns the stored bundle.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		req, err := cli.ReadRequestFile(firstArg(args), cmd.InOrStdin())
		if err != nil {
			return err
		}
		if id, _ := cmd.Flags().GetString("id"); id != "" {
			req.ID = id
		}

		format, _ := cmd.Flags().GetString("output")
		printer, err := cli.NewPrinter(cmd.OutOrStdout(), format)
		if err != nil {
			return err
		}

		app, err := openApp(ctx, cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		if printer.Format() == cli.FormatPretty {
			tui.PrintBanner(cmd.OutOrStdout())
		}

		res, err := app.Service.Complete(ctx, req)
		if err != nil && res.Bundle == nil {
			return err
		}
		if res.Replayed && printer.Format() != cli.FormatJSON {
			cli.PrintSystemMessage(cmd.ErrOrStderr(), "Replaying stored assessment '%s'.", res.Bundle.ID)
		}
		if perr := printer.Bundle(res.Bundle); perr != nil {
			return perr
		}
		if ctx.Signal() != nil {
			cli.PrintSystemMessage(cmd.ErrOrStderr(), "Interrupted by %v; the bundle records the cancellation.", ctx.Signal())
		}
		return err
	},
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func init() {
	rootCmd.AddCommand(assessCmd)
	assessCmd.Flags().String("id", "", "Assessment ID (idempotency key)")
	assessCmd.Flags().StringP("output", "o", cli.FormatAuto, "Output format: auto, json, markdown or pretty")
}
