// Package verify replays puzzle lines and checks every solution move played
// from a tablebase position against the oracle.
package verify

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/freeeve/puzzlecheck/internal/board"
	"github.com/freeeve/puzzlecheck/internal/oracle"
	"github.com/freeeve/puzzlecheck/internal/puzzle"
)

// MaxPieces is the largest position the tablebase answers for.
const MaxPieces = 7

var (
	// ErrInvalidMove means the puzzle line cannot be replayed.
	ErrInvalidMove = errors.New("invalid puzzle move")
	// ErrInvalidPosition means the start FEN cannot be parsed.
	ErrInvalidPosition = errors.New("invalid puzzle position")
)

// EngineConfig configures an Engine.
type EngineConfig struct {
	Oracle oracle.Oracle
	Sink   Sink // defaults to a LogSink on Logger
	Logger zerolog.Logger
}

// Engine verifies puzzles one at a time.
type Engine struct {
	oracle oracle.Oracle
	sink   Sink
	log    zerolog.Logger
}

// NewEngine creates an Engine.
func NewEngine(cfg EngineConfig) *Engine {
	log := cfg.Logger.With().Str("component", "verify").Logger()
	sink := cfg.Sink
	if sink == nil {
		sink = LogSink{Logger: log}
	}
	return &Engine{
		oracle: cfg.Oracle,
		sink:   sink,
		log:    log,
	}
}

// Verify replays p and returns the union of everything found at its
// verification points. Even indices are the opponent's moves and are only
// played; odd indices are checked whenever the position before them holds
// at most MaxPieces men. A failed lookup aborts the puzzle and no partial
// finding is returned.
func (e *Engine) Verify(ctx context.Context, p puzzle.Puzzle) (puzzle.Finding, error) {
	b, err := board.New(p.FEN)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidPosition, err)
	}

	var finding puzzle.Finding
	// Mate length comes from the goal, not from the length of the line.
	plies, _ := p.Goal.MatePlies()
	for i, mv := range p.Moves {
		if i%2 == 1 && b.PieceCount() <= MaxPieces {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
			fen := b.FEN()
			resp, err := e.oracle.Classify(ctx, fen)
			if err != nil {
				return 0, fmt.Errorf("puzzle %s ply %d: %w", p.ID, i, err)
			}
			e.log.Debug().
				Str("puzzle", p.ID).
				Str("fen", fen).
				Stringer("category", resp.Category).
				Int("replies", len(resp.Replies)).
				Msg("tablebase answer")

			for _, is := range Classify(p.Goal, mv, plies-i, resp) {
				finding = finding.Add(is.Kind)
				e.sink.Report(Diagnostic{
					PuzzleID: p.ID,
					FEN:      fen,
					Kind:     is.Kind,
					Move:     is.Move,
					Detail:   is.Detail,
				})
			}
		}

		if err := b.Apply(mv); err != nil {
			return 0, fmt.Errorf("%w: puzzle %s ply %d: %w", ErrInvalidMove, p.ID, i, err)
		}
	}
	return finding, nil
}
