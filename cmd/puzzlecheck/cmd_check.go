package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/freeeve/puzzlecheck/internal/checker"
	"github.com/freeeve/puzzlecheck/internal/httpapi"
	"github.com/freeeve/puzzlecheck/internal/oracle"
	"github.com/freeeve/puzzlecheck/internal/puzzle"
	"github.com/freeeve/puzzlecheck/internal/verify"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify unchecked candidates against the tablebase",
	Long: `check loads the candidate file, skips every puzzle already in the ledger
and verifies the rest one at a time. Each verified puzzle is appended to the
ledger as "<id> [Wrong] [Multiple]". Stopping the command loses at most the
puzzle in flight; running it again resumes from there.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		l, release, err := openLedger()
		if err != nil {
			return err
		}
		defer release()

		cands, err := puzzle.LoadCandidates(cfg.CandidatesPath, logger)
		if err != nil {
			return err
		}

		o, err := newOracle()
		if err != nil {
			return err
		}
		engine := verify.NewEngine(verify.EngineConfig{Oracle: o, Logger: logger})
		chk, err := checker.New(checker.Config{Logger: logger}, engine, l)
		if err != nil {
			return err
		}

		srvDone := make(chan error, 1)
		srvCtx, stopSrv := context.WithCancel(ctx)
		defer stopSrv()
		if cfg.HTTP.Addr != "" {
			go func() {
				srvDone <- httpapi.Serve(srvCtx, cfg.HTTP.Addr, httpapi.NewRouter(logger, chk, l), logger)
			}()
		} else {
			srvDone <- nil
		}

		sum, runErr := chk.Run(ctx, cands)
		stopSrv()
		if err := <-srvDone; err != nil {
			logger.Warn().Err(err).Msg("status server")
		}

		if errors.Is(runErr, context.Canceled) {
			logger.Info().Msg("interrupted, run again to resume")
			runErr = nil
		}
		if runErr != nil {
			return runErr
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d checked, %d incorrect, %d not verified, %d still unchecked\n",
			sum.Processed, sum.Incorrect, sum.Failed, sum.Unchecked-sum.Processed)
		return nil
	},
}

func init() {
	checkCmd.Flags().String("addr", "", "serve status and metrics on this address while checking")
	checkCmd.Flags().Duration("min-interval", 0, "minimum delay between tablebase requests (default 550ms)")
	mustBind("http.addr", checkCmd.Flags().Lookup("addr"))
	mustBind("oracle.min_interval", checkCmd.Flags().Lookup("min-interval"))
}

// newOracle builds client -> throttle -> cache. Cache hits never wait on the
// throttle.
func newOracle() (oracle.Oracle, error) {
	client, err := oracle.NewClient(oracle.ClientConfig{
		BaseURL:        cfg.Oracle.URL,
		Logger:         logger,
		Timeout:        cfg.Oracle.Timeout,
		MaxRetries:     cfg.Oracle.MaxRetries,
		InitialBackoff: cfg.Oracle.InitialBackoff,
		MaxBackoff:     cfg.Oracle.MaxBackoff,
		UserAgent:      "puzzlecheck/" + version,
	})
	if err != nil {
		return nil, err
	}

	var o oracle.Oracle = oracle.NewThrottle(client, cfg.Oracle.MinInterval)
	if cfg.Oracle.Cache {
		o = oracle.NewCache(o)
	}
	logger.Info().
		Str("url", cfg.Oracle.URL).
		Dur("min_interval", cfg.Oracle.MinInterval).
		Int("max_retries", cfg.Oracle.MaxRetries).
		Bool("cache", cfg.Oracle.Cache).
		Msg("tablebase client ready")
	return o, nil
}
