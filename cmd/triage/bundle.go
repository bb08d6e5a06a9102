package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/triage/internal/cli"
)

var bundleCmd = &cobra.Command{
	Use:   "bundle [id]",
	Short: "Fetch a stored audit bundle, or list stored IDs",
	Long: `Reads from the configured audit store. Without an ID the stored
assessment IDs are listed. The memory driver holds nothing between
invocations, so this is useful with the file, redis or postgres drivers.

With --export-dir the bundle is also written as <dir>/<id>.json, with the
values of keys matching any --redact pattern masked.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
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

		if len(args) == 0 {
			ids, err := app.Service.Bundles(cmd.Context())
			if err != nil {
				return err
			}
			return printer.JSON(map[string][]string{"ids": ids})
		}

		b, err := app.Service.Bundle(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if dir, _ := cmd.Flags().GetString("export-dir"); dir != "" {
			redact, _ := cmd.Flags().GetStringSlice("redact")
			path, err := cli.ExportBundle(cmd.Context(), b, dir, redact)
			if err != nil {
				return err
			}
			cli.PrintSystemMessage(cmd.ErrOrStderr(), "exported %s", path)
		}
		return printer.Bundle(b)
	},
}

func init() {
	rootCmd.AddCommand(bundleCmd)
	bundleCmd.Flags().StringP("output", "o", cli.FormatAuto, "Output format: auto, json, markdown or pretty")
	bundleCmd.Flags().String("export-dir", "", "Also write the bundle to this directory")
	bundleCmd.Flags().StringSlice("redact", nil, "Key patterns (regular expressions) masked in the export")
}
