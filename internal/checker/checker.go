// Package checker drives a checking pass: it diffs the candidates against the
// ledger, verifies the remainder one puzzle at a time and records each result
// as soon as it is complete.
package checker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/freeeve/puzzlecheck/internal/ledger"
	"github.com/freeeve/puzzlecheck/internal/metrics"
	"github.com/freeeve/puzzlecheck/internal/oracle"
	"github.com/freeeve/puzzlecheck/internal/puzzle"
)

// Verifier verifies one puzzle.
type Verifier interface {
	Verify(ctx context.Context, p puzzle.Puzzle) (puzzle.Finding, error)
}

// Ledger is the part of the checkpoint ledger a checking pass needs.
type Ledger interface {
	Diff(candidates []puzzle.Puzzle) (ledger.Diff, error)
	Append(id string, f puzzle.Finding) error
}

// Config configures a Checker.
type Config struct {
	Logger        zerolog.Logger
	ProgressEvery time.Duration // progress log interval (default 30s)
}

// Checker runs checking passes. It is not safe to call Run concurrently;
// GetStatus may be called from any goroutine.
type Checker struct {
	cfg      Config
	log      zerolog.Logger
	verifier Verifier
	ledger   Ledger

	running   int32
	total     int64
	processed int64
	correct   int64
	incorrect int64
	failed    int64
	startedAt atomic.Int64 // unix nanos
	current   atomic.Value // string
}

// New creates a Checker.
func New(cfg Config, v Verifier, l Ledger) (*Checker, error) {
	if v == nil {
		return nil, fmt.Errorf("verifier required")
	}
	if l == nil {
		return nil, fmt.Errorf("ledger required")
	}
	if cfg.ProgressEvery == 0 {
		cfg.ProgressEvery = 30 * time.Second
	}
	c := &Checker{
		cfg:      cfg,
		log:      cfg.Logger.With().Str("component", "checker").Logger(),
		verifier: v,
		ledger:   l,
	}
	c.current.Store("")
	return c, nil
}

// Summary describes a finished or interrupted pass.
type Summary struct {
	Candidates     int           `json:"candidates"`
	AlreadyChecked int           `json:"already_checked"`
	Stale          int           `json:"stale"`
	Unchecked      int           `json:"unchecked"`
	Processed      int           `json:"processed"`
	Correct        int           `json:"correct"`
	Incorrect      int           `json:"incorrect"`
	Failed         int           `json:"failed"`
	Elapsed        time.Duration `json:"elapsed"`
}

// Status is a point-in-time view of the current pass.
type Status struct {
	Running   bool      `json:"running"`
	Current   string    `json:"current,omitempty"`
	Total     int64     `json:"total"`
	Processed int64     `json:"processed"`
	Correct   int64     `json:"correct"`
	Incorrect int64     `json:"incorrect"`
	Failed    int64     `json:"failed"`
	StartedAt time.Time `json:"started_at,omitempty"`
}

// GetStatus returns the current status.
func (c *Checker) GetStatus() Status {
	st := Status{
		Running:   atomic.LoadInt32(&c.running) == 1,
		Current:   c.current.Load().(string),
		Total:     atomic.LoadInt64(&c.total),
		Processed: atomic.LoadInt64(&c.processed),
		Correct:   atomic.LoadInt64(&c.correct),
		Incorrect: atomic.LoadInt64(&c.incorrect),
		Failed:    atomic.LoadInt64(&c.failed),
	}
	if ns := c.startedAt.Load(); ns != 0 {
		st.StartedAt = time.Unix(0, ns)
	}
	return st
}

// Run checks every candidate the ledger has not seen yet, in candidate order.
// A puzzle is appended to the ledger only after it has been fully verified;
// one that fails to verify is logged and left for the next run. The pass
// stops early when the oracle cannot be reached at all, when the ledger
// cannot be written, or when ctx is done.
func (c *Checker) Run(ctx context.Context, candidates []puzzle.Puzzle) (Summary, error) {
	start := time.Now()
	sum := Summary{Candidates: len(candidates)}

	diff, err := c.ledger.Diff(candidates)
	if err != nil {
		return sum, fmt.Errorf("diff ledger: %w", err)
	}
	sum.AlreadyChecked = len(candidates) - len(diff.Unchecked)
	sum.Stale = len(diff.Stale)
	sum.Unchecked = len(diff.Unchecked)

	c.log.Info().
		Int("candidates", sum.Candidates).
		Int("already_checked", sum.AlreadyChecked).
		Int("unchecked", sum.Unchecked).
		Msg("puzzles still need to be checked")

	atomic.StoreInt32(&c.running, 1)
	defer atomic.StoreInt32(&c.running, 0)
	defer c.current.Store("")
	atomic.StoreInt64(&c.total, int64(sum.Unchecked))
	atomic.StoreInt64(&c.processed, 0)
	atomic.StoreInt64(&c.correct, 0)
	atomic.StoreInt64(&c.incorrect, 0)
	atomic.StoreInt64(&c.failed, 0)
	c.startedAt.Store(start.UnixNano())

	finish := func(err error) (Summary, error) {
		sum.Elapsed = time.Since(start)
		ev := c.log.Info()
		if err != nil {
			ev = c.log.Warn().Err(err)
		}
		ev.Int("processed", sum.Processed).
			Int("correct", sum.Correct).
			Int("incorrect", sum.Incorrect).
			Int("failed", sum.Failed).
			Dur("elapsed", sum.Elapsed).
			Msg("checking pass finished")
		return sum, err
	}

	lastLog := start
	for _, p := range diff.Unchecked {
		if err := ctx.Err(); err != nil {
			return finish(err)
		}
		c.current.Store(p.ID)

		t0 := time.Now()
		f, err := c.verifier.Verify(ctx, p)
		metrics.PuzzleDuration.Observe(time.Since(t0).Seconds())
		if err != nil {
			if errors.Is(err, oracle.ErrUnreachable) {
				return finish(fmt.Errorf("stopping, oracle unreachable: %w", err))
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return finish(ctxErr)
			}
			sum.Failed++
			atomic.AddInt64(&c.failed, 1)
			metrics.PuzzlesChecked.WithLabelValues("failed").Inc()
			c.log.Warn().Err(err).Str("puzzle", p.ID).Msg("puzzle not verified, will retry next run")
			continue
		}

		if err := c.ledger.Append(p.ID, f); err != nil {
			return finish(fmt.Errorf("record %s: %w", p.ID, err))
		}
		sum.Processed++
		atomic.AddInt64(&c.processed, 1)

		if f.Empty() {
			sum.Correct++
			atomic.AddInt64(&c.correct, 1)
			metrics.PuzzlesChecked.WithLabelValues("correct").Inc()
		} else {
			sum.Incorrect++
			atomic.AddInt64(&c.incorrect, 1)
			metrics.PuzzlesChecked.WithLabelValues("incorrect").Inc()
			for _, k := range f.Kinds() {
				metrics.Findings.WithLabelValues(k.String()).Inc()
			}
			c.log.Error().Str("puzzle", p.ID).Stringer("errors", f).Msg("puzzle contains errors")
		}

		if time.Since(lastLog) > c.cfg.ProgressEvery {
			c.log.Info().
				Int("processed", sum.Processed).
				Int("remaining", sum.Unchecked-sum.Processed-sum.Failed).
				Int("incorrect", sum.Incorrect).
				Float64("elapsed_sec", time.Since(start).Seconds()).
				Msg("check progress")
			lastLog = time.Now()
		}
	}

	return finish(nil)
}
