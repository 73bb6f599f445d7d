package main

import (
	"github.com/spf13/cobra"

	"github.com/freeeve/puzzlecheck/internal/httpapi"
	"github.com/freeeve/puzzlecheck/internal/ledger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve incorrect ids and metrics from the ledger",
	Long: `serve exposes /healthz, /readyz, /v1/status, /v1/incorrect and /metrics.
It only reads the ledger and may run next to a check.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		l, err := ledger.Open(cfg.LedgerPath, logger)
		if err != nil {
			return err
		}
		addr := cfg.HTTP.Addr
		if f := cmd.Flags().Lookup("addr"); f.Changed || addr == "" {
			addr = f.Value.String()
		}
		return httpapi.Serve(ctx, addr, httpapi.NewRouter(logger, nil, l), logger)
	},
}

func init() {
	serveCmd.Flags().String("addr", ":8007", "listen address (overrides http.addr)")
}
