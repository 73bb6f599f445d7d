// Package filter selects the puzzles whose line ever reaches a tablebase
// position.
package filter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/freeeve/puzzlecheck/internal/board"
	"github.com/freeeve/puzzlecheck/internal/puzzle"
)

// MaxPieces is the largest piece count the tablebase covers.
const MaxPieces = 7

// Eligible reports whether replaying moves from fen ever leaves at most
// MaxPieces men on the board. Each move removes at most one man, so a line
// that starts more than len(moves) above the limit is rejected unplayed.
func Eligible(fen string, moves []string) (bool, error) {
	p0 := board.CountPieces(fen)
	if p0-len(moves) > MaxPieces {
		return false, nil
	}
	if p0 <= MaxPieces {
		return true, nil
	}

	b, err := board.New(fen)
	if err != nil {
		return false, err
	}
	for _, mv := range moves {
		if err := b.Apply(mv); err != nil {
			return false, err
		}
		if b.PieceCount() <= MaxPieces {
			return true, nil
		}
	}
	return false, nil
}

// Config configures a Stage.
type Config struct {
	Logger        zerolog.Logger
	ProgressEvery time.Duration // progress log interval (default 10s)
}

// Stats counts what a Stage run saw.
type Stats struct {
	Rows      int64
	Eligible  int64
	Rejected  int64
	Malformed int64
}

// Stage streams a puzzle database into a candidate file.
type Stage struct {
	cfg Config
	log zerolog.Logger
}

// NewStage creates a Stage.
func NewStage(cfg Config) *Stage {
	if cfg.ProgressEvery == 0 {
		cfg.ProgressEvery = 10 * time.Second
	}
	return &Stage{
		cfg: cfg,
		log: cfg.Logger.With().Str("component", "filter").Logger(),
	}
}

// Run copies every eligible row of in to out, header first. Rows that cannot
// be parsed or replayed are counted and skipped.
func (s *Stage) Run(ctx context.Context, in io.Reader, out io.Writer) (Stats, error) {
	var st Stats
	r := puzzle.NewReader(in)
	w := puzzle.NewWriter(out)
	if err := w.WriteHeader(); err != nil {
		return st, err
	}

	start := time.Now()
	lastLog := start
	for {
		if err := ctx.Err(); err != nil {
			return st, err
		}

		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var rowErr *puzzle.RowError
			if errors.As(err, &rowErr) {
				st.Malformed++
				s.log.Debug().Err(err).Msg("skipping malformed row")
				continue
			}
			return st, fmt.Errorf("read database: %w", err)
		}
		st.Rows++

		ok, err := Eligible(rec.FEN, rec.MoveList())
		switch {
		case err != nil:
			st.Malformed++
			s.log.Debug().Err(err).Str("puzzle", rec.ID).Msg("cannot replay puzzle")
		case ok:
			st.Eligible++
			if err := w.Write(rec); err != nil {
				return st, fmt.Errorf("write candidate %s: %w", rec.ID, err)
			}
		default:
			st.Rejected++
		}

		if time.Since(lastLog) > s.cfg.ProgressEvery {
			s.log.Info().
				Int64("rows", st.Rows).
				Int64("eligible", st.Eligible).
				Int64("malformed", st.Malformed).
				Float64("rows_per_sec", float64(st.Rows)/time.Since(start).Seconds()).
				Msg("filter progress")
			lastLog = time.Now()
		}
	}

	if err := w.Flush(); err != nil {
		return st, fmt.Errorf("flush candidates: %w", err)
	}
	s.log.Info().
		Int64("rows", st.Rows).
		Int64("eligible", st.Eligible).
		Int64("rejected", st.Rejected).
		Int64("malformed", st.Malformed).
		Dur("elapsed", time.Since(start)).
		Msg("filter complete")
	return st, nil
}

// RunFile filters the database at inPath into outPath. The candidate file is
// written to a temporary file and renamed into place, so an interrupted run
// leaves any previous candidate file untouched.
func (s *Stage) RunFile(ctx context.Context, inPath, outPath string) (Stats, error) {
	in, err := puzzle.Open(inPath)
	if err != nil {
		return Stats{}, fmt.Errorf("open database: %w", err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(outPath), filepath.Base(outPath)+".tmp-*")
	if err != nil {
		return Stats{}, fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	st, err := s.Run(ctx, in, tmp)
	if err != nil {
		tmp.Close()
		return st, err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return st, fmt.Errorf("sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return st, fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpName, outPath); err != nil {
		return st, fmt.Errorf("rename: %w", err)
	}
	return st, nil
}
