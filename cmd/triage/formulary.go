package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/triage/internal/cli"
	"github.com/aretw0/triage/pkg/formulary"
)

type tableView struct {
	Locale               string                  `json:"locale"`
	ComplicatedBelowEGFR float64                 `json:"complicated_below_egfr"`
	SelectionOrder       []string                `json:"selection_order"`
	Agents               []formulary.Entry       `json:"agents"`
	Interactions         []formulary.Interaction `json:"interactions,omitempty"`
	Sources              []string                `json:"sources,omitempty"`
	Notes                string                  `json:"notes,omitempty"`
}

var formularyCmd = &cobra.Command{
	Use:   "formulary [locale]",
	Short: "Show the loaded formulary",
	Long: `Prints the formulary after overrides from formulary.dir are applied.
Without a locale the available locales are listed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		printer, err := cli.NewPrinter(cmd.OutOrStdout(), cli.FormatJSON)
		if err != nil {
			return err
		}

		app, err := openApp(cmd.Context(), cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		set := app.Service.Formulary()
		if len(args) == 0 {
			return printer.JSON(map[string]any{
				"default_locale": set.DefaultLocale(),
				"locales":        set.Locales(),
			})
		}

		t, err := set.Table(args[0])
		if err != nil {
			return err
		}
		view := tableView{
			Locale:               t.Locale,
			ComplicatedBelowEGFR: t.ComplicatedBelowEGFR,
			SelectionOrder:       t.SelectionOrder,
			Interactions:         t.Interactions(),
			Sources:              t.Sources,
			Notes:                t.Notes,
		}
		for _, a := range t.Agents() {
			e, _ := t.Lookup(a)
			view.Agents = append(view.Agents, e)
		}
		return printer.JSON(view)
	},
}

func init() {
	rootCmd.AddCommand(formularyCmd)
}
