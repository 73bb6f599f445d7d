package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/freeeve/puzzlecheck/internal/ledger"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the ids of incorrect puzzles, one per line",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := ledger.Open(cfg.LedgerPath, logger)
		if err != nil {
			return err
		}
		n, err := l.Export(cfg.ExportPath)
		if err != nil {
			return err
		}
		logger.Info().Int("incorrect", n).Str("path", cfg.ExportPath).Msg("incorrect puzzles exported")
		fmt.Fprintf(cmd.OutOrStdout(), "%d incorrect puzzles written to %s\n", n, cfg.ExportPath)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("output", "o", "incorrect_puzzles_id.txt", "output file")
	mustBind("export_path", exportCmd.Flags().Lookup("output"))
}
