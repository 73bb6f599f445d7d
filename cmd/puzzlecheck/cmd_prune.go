package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/freeeve/puzzlecheck/internal/puzzle"
)

var pruneDryRun bool

var pruneCmd = &cobra.Command{
	Use:   "prune [id...]",
	Short: "Drop ledger entries for puzzles that are no longer candidates",
	Long: `prune rewrites the ledger without the given ids or, when none are given,
without every checked id that is missing from the candidate file. The ledger
is replaced atomically. prune refuses to run while a check holds the ledger.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		l, release, err := openLedger()
		if err != nil {
			return err
		}
		defer release()

		ids := args
		if len(ids) == 0 {
			cands, err := puzzle.LoadCandidates(cfg.CandidatesPath, logger)
			if err != nil {
				return err
			}
			d, err := l.Diff(cands)
			if err != nil {
				return err
			}
			ids = d.Stale
		}

		if len(ids) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "nothing to prune")
			return nil
		}
		if pruneDryRun {
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		}

		removed, err := l.Prune(ids)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d ledger lines removed\n", removed)
		return nil
	},
}

func init() {
	pruneCmd.Flags().BoolVar(&pruneDryRun, "dry-run", false, "list the ids that would be removed")
}
