package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/freeeve/puzzlecheck/internal/filter"
)

var filterCmd = &cobra.Command{
	Use:   "filter [database]",
	Short: "Select puzzles that reach a position with at most 7 men",
	Long: `filter reads the lichess puzzle database (plain CSV, .csv.zst as
distributed, or .csv.gz) and writes every puzzle whose line reaches a
position with at most seven men to the candidate file.

The database path is taken from the argument, then db_path / DB_PATH.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db := cfg.DBPath
		if len(args) == 1 {
			db = args[0]
		}
		if db == "" {
			return errors.New("no database given: pass a path or set DB_PATH")
		}

		ctx, stop := signalContext()
		defer stop()

		logger.Info().Str("db", db).Str("out", cfg.CandidatesPath).Msg("looking for puzzles with <= 7 pieces")
		st, err := filter.NewStage(filter.Config{Logger: logger}).RunFile(ctx, db, cfg.CandidatesPath)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d of %d puzzles written to %s (%d unreadable)\n",
			st.Eligible, st.Rows, cfg.CandidatesPath, st.Malformed)
		return nil
	},
}
