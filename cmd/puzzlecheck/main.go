// Command puzzlecheck audits lichess puzzles against the endgame tablebase.
//
//	puzzlecheck filter   select puzzles that reach <= 7 men into the candidate file
//	puzzlecheck check    verify unchecked candidates and record them in the ledger
//	puzzlecheck export   write the ids of incorrect puzzles
//	puzzlecheck prune    drop ledger entries that are no longer candidates
//	puzzlecheck serve    expose status, incorrect ids and metrics over HTTP
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/freeeve/puzzlecheck/internal/config"
	"github.com/freeeve/puzzlecheck/internal/ledger"
	"github.com/freeeve/puzzlecheck/internal/logx"
)

// version is overridden via -ldflags "-X main.version=...".
var version = "dev"

var (
	cfgFile   string
	cfg       config.Config
	logger    zerolog.Logger
	logCloser io.Closer
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "puzzlecheck",
	Short: "Check lichess puzzle solutions against the endgame tablebase",
	Long: `puzzlecheck replays lichess puzzles and, wherever a solution move is played
from a position with at most seven men, asks the tablebase whether the move
keeps the claimed win, draw or mate and whether another move does too.

Results are appended to a ledger file so that an interrupted run resumes
where it stopped.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(viper.GetViper(), cfgFile)
		if err != nil {
			return err
		}
		var closer io.Closer
		logger, closer, err = logx.NewLogger(logx.Options{
			Level:   cfg.Log.Level,
			File:    cfg.Log.File,
			Console: os.Stderr,
		})
		if err != nil {
			return err
		}
		logCloser = closer
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logCloser == nil {
			return nil
		}
		return logCloser.Close()
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file, YAML or .env (default ./puzzlecheck.yaml if present)")
	pf.String("log-level", "info", "console log level (debug, info, warn, error)")
	pf.String("log-file", "puz.log", "debug log file (empty disables)")
	pf.String("candidates", "puzzle.csv", "candidate file")
	pf.String("ledger", "puzzle_checked.txt", "ledger file")

	mustBind("log.level", pf.Lookup("log-level"))
	mustBind("log.file", pf.Lookup("log-file"))
	mustBind("candidates_path", pf.Lookup("candidates"))
	mustBind("ledger_path", pf.Lookup("ledger"))

	rootCmd.AddCommand(filterCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

func mustBind(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the puzzlecheck version",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "puzzlecheck %s\n", version)
	},
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// openLedger opens the configured ledger and takes its lock.
func openLedger() (*ledger.Ledger, func(), error) {
	l, err := ledger.Open(cfg.LedgerPath, logger)
	if err != nil {
		return nil, nil, err
	}
	unlock, err := l.Lock()
	if err != nil {
		return nil, nil, err
	}
	return l, func() {
		if err := l.Close(); err != nil {
			logger.Warn().Err(err).Msg("close ledger")
		}
		if err := unlock(); err != nil {
			logger.Warn().Err(err).Msg("unlock ledger")
		}
	}, nil
}
