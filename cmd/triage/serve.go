package main

import (
	"github.com/spf13/cobra"

	"github.com/aretw0/triage/internal/cli"
	triagehttp "github.com/aretw0/triage/pkg/adapters/http"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serves the assessment API described at /openapi.yaml, with health and
readiness probes and Prometheus metrics when enabled.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		app, err := openApp(ctx, cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		addr := app.Config.HTTP.Addr
		if cmd.Flags().Changed("addr") {
			addr, _ = cmd.Flags().GetString("addr")
		}

		handler, err := triagehttp.NewHandler(app.Service,
			triagehttp.WithLogger(app.Logger),
			triagehttp.WithMetrics(app.MetricsHandler()),
		)
		if err != nil {
			return err
		}

		if err := triagehttp.Serve(ctx, addr, handler, app.Config.HTTP.ShutdownTimeout, app.Logger); err != nil {
			return err
		}
		if sig := ctx.Signal(); sig != nil {
			app.Logger.Info("http server stopped", "signal", sig.String())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (overrides http.addr)")
}
