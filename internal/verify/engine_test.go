package verify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freeeve/puzzlecheck/internal/board"
	"github.com/freeeve/puzzlecheck/internal/oracle"
	"github.com/freeeve/puzzlecheck/internal/puzzle"
)

func dtm(n int) *int { return &n }

// placement keeps the board and side-to-move fields of a FEN.
func placement(fen string) string {
	f := strings.Fields(fen)
	return f[0] + " " + f[1]
}

// fakeOracle answers from a table keyed by placement and side to move.
type fakeOracle struct {
	t         *testing.T
	responses map[string]*oracle.Response
	calls     []string
	err       error
}

func (f *fakeOracle) Classify(ctx context.Context, fen string) (*oracle.Response, error) {
	f.calls = append(f.calls, fen)
	if f.err != nil {
		return nil, f.err
	}
	resp, ok := f.responses[placement(fen)]
	if !ok {
		f.t.Fatalf("unexpected lookup for %s", fen)
	}
	return resp, nil
}

// Tablebase answers for the mate fixtures.
var mateFixtures = map[string]*oracle.Response{
	// After 1...Ka8 in 1k6/2Q5/1K6/8/8/8/8/4qq2 b.
	"k7/2Q5/1K6/8/8/8/8/4qq2 w": {
		Category: oracle.Win,
		DTM:      dtm(1),
		Replies: []oracle.Reply{
			{UCI: "c7c8", SAN: "Qc8#", Category: oracle.Loss, DTM: dtm(0), Checkmate: true},
			{UCI: "c7a7", SAN: "Qa7#", Category: oracle.Loss, DTM: dtm(0), Checkmate: true},
			{UCI: "c7d8", SAN: "Qd8+", Category: oracle.Loss, DTM: dtm(-14)},
			{UCI: "c7b8", SAN: "Qb8+", Category: oracle.Win, DTM: dtm(12)},
		},
	},
	// After 1...Ka8 in 1k6/8/1K6/8/8/8/1R6/8 b.
	"k7/8/1K6/8/8/8/1R6/8 w": {
		Category: oracle.Win,
		DTM:      dtm(3),
		Replies: []oracle.Reply{
			{UCI: "b2d2", SAN: "Rd2", Category: oracle.Loss, DTM: dtm(-2)},
			{UCI: "b2c2", SAN: "Rc2", Category: oracle.Loss, DTM: dtm(-2)},
			{UCI: "b2h2", SAN: "Rh2", Category: oracle.Loss, DTM: dtm(-2)},
			{UCI: "b2a2", SAN: "Ra2+", Category: oracle.Loss, DTM: dtm(-8)},
			{UCI: "b6c7", SAN: "Kc7", Category: oracle.Draw, DTM: nil},
		},
	},
	// After 2...Kb8.
	"1k6/8/1K6/8/8/8/3R4/8 w": {
		Category: oracle.Win,
		DTM:      dtm(1),
		Replies: []oracle.Reply{
			{UCI: "d2d8", SAN: "Rd8#", Category: oracle.Loss, DTM: dtm(0), Checkmate: true},
			{UCI: "d2d7", SAN: "Rd7", Category: oracle.Loss, DTM: dtm(-4)},
		},
	},
	// After 1...Ka8 in 1k6/8/1KR5/7q/7q/8/8/5q1q b, seven men so no DTM.
	"k7/8/1KR5/7q/7q/8/8/5q1q w": {
		Category: oracle.Win,
		Replies: []oracle.Reply{
			{UCI: "c6c8", SAN: "Rc8#", Category: oracle.Loss, Checkmate: true},
			{UCI: "c6a6", SAN: "Ra6+", Category: oracle.Loss},
			{UCI: "c6c7", SAN: "Rc7", Category: oracle.Win},
		},
	},
}

func newFixtureEngine(t *testing.T, sink Sink) (*Engine, *fakeOracle) {
	t.Helper()
	fake := &fakeOracle{t: t, responses: mateFixtures}
	return NewEngine(EngineConfig{Oracle: fake, Sink: sink, Logger: zerolog.Nop()}), fake
}

func TestEngine_MateFixtures(t *testing.T) {
	tests := []struct {
		name  string
		fen   string
		moves []string
		goal  puzzle.Goal
		want  puzzle.Finding
		calls int
	}{
		{
			name:  "mate in one with a second mating move",
			fen:   "1k6/2Q5/1K6/8/8/8/8/4qq2 b - - 0 1",
			moves: []string{"b8a8", "c7c8"},
			goal:  puzzle.MateIn(2),
			want:  puzzle.NewFinding(),
			calls: 1,
		},
		{
			name:  "solution gives up the queen",
			fen:   "1k6/2Q5/1K6/8/8/8/8/4qq2 b - - 0 1",
			moves: []string{"b8a8", "c7b8"},
			goal:  puzzle.MateIn(2),
			want:  puzzle.NewFinding(puzzle.Wrong),
			calls: 1,
		},
		{
			name:  "rook mate with equally fast alternatives",
			fen:   "1k6/8/1K6/8/8/8/1R6/8 b - - 0 1",
			moves: []string{"b8a8", "b2d2", "a8b8", "d2d8"},
			goal:  puzzle.MateIn(4),
			want:  puzzle.NewFinding(puzzle.Multiple),
			calls: 2,
		},
		{
			name:  "mate without DTM",
			fen:   "1k6/8/1KR5/7q/7q/8/8/5q1q b - - 0 1",
			moves: []string{"b8a8", "c6c8"},
			goal:  puzzle.MateIn(2),
			want:  puzzle.NewFinding(),
			calls: 1,
		},
		{
			name:  "claimed mate is shorter than the line",
			fen:   "1k6/8/1K6/8/8/8/1R6/8 b - - 0 1",
			moves: []string{"b8a8", "b2d2", "a8b8", "d2d8"},
			goal:  puzzle.MateIn(2),
			want:  puzzle.NewFinding(puzzle.Wrong),
			calls: 2,
		},
		{
			name:  "claimed mate is longer than the tablebase says",
			fen:   "1k6/2Q5/1K6/8/8/8/8/4qq2 b - - 0 1",
			moves: []string{"b8a8", "c7c8"},
			goal:  puzzle.MateIn(4),
			want:  puzzle.NewFinding(puzzle.Wrong),
			calls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, fake := newFixtureEngine(t, nil)
			got, err := e.Verify(context.Background(), puzzle.Puzzle{
				ID:    "fixture",
				FEN:   tt.fen,
				Moves: tt.moves,
				Goal:  tt.goal,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got, "got %s", got)
			assert.Len(t, fake.calls, tt.calls)
		})
	}
}

func TestEngine_ReportsDiagnostics(t *testing.T) {
	var c Collector
	e, _ := newFixtureEngine(t, &c)

	got, err := e.Verify(context.Background(), puzzle.Puzzle{
		ID:    "R00k",
		FEN:   "1k6/8/1K6/8/8/8/1R6/8 b - - 0 1",
		Moves: []string{"b8a8", "b2d2", "a8b8", "d2d8"},
		Goal:  puzzle.MateIn(4),
	})
	require.NoError(t, err)
	assert.True(t, got.Has(puzzle.Multiple))

	var moves []string
	for _, d := range c.Diagnostics {
		assert.Equal(t, "R00k", d.PuzzleID)
		assert.Equal(t, puzzle.Multiple, d.Kind)
		assert.Equal(t, "k7/8/1K6/8/8/8/1R6/8 w", placement(d.FEN))
		moves = append(moves, d.Move)
	}
	assert.ElementsMatch(t, []string{"b2c2", "b2h2"}, moves)
}

func TestEngine_SkipsLargePositionsAndOpponentMoves(t *testing.T) {
	e, fake := newFixtureEngine(t, nil)

	got, err := e.Verify(context.Background(), puzzle.Puzzle{
		ID:    "opening",
		FEN:   "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
		Moves: []string{"e2e4", "e7e5", "g1f3", "b8c6"},
		Goal:  puzzle.Win(),
	})
	require.NoError(t, err)
	assert.True(t, got.Empty())
	assert.Empty(t, fake.calls)
}

func TestEngine_OracleFailureAbortsPuzzle(t *testing.T) {
	var c Collector
	e, fake := newFixtureEngine(t, &c)
	fake.err = &oracle.Error{FEN: "x", Attempts: 6, Unreachable: true, Err: errors.New("dial tcp: refused")}

	got, err := e.Verify(context.Background(), puzzle.Puzzle{
		ID:    "rook",
		FEN:   "1k6/8/1K6/8/8/8/1R6/8 b - - 0 1",
		Moves: []string{"b8a8", "b2d2", "a8b8", "d2d8"},
		Goal:  puzzle.MateIn(4),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, oracle.ErrUnreachable))
	assert.True(t, got.Empty())
	assert.Len(t, fake.calls, 1)
}

func TestEngine_InvalidMove(t *testing.T) {
	e, _ := newFixtureEngine(t, nil)

	_, err := e.Verify(context.Background(), puzzle.Puzzle{
		ID:    "bad",
		FEN:   "1k6/8/1K6/8/8/8/1R6/8 b - - 0 1",
		Moves: []string{"b8b7"},
		Goal:  puzzle.Win(),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidMove))
	assert.True(t, errors.Is(err, board.ErrIllegalMove))
}

func TestEngine_CancelledContext(t *testing.T) {
	e, fake := newFixtureEngine(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Verify(ctx, puzzle.Puzzle{
		ID:    "rook",
		FEN:   "1k6/8/1K6/8/8/8/1R6/8 b - - 0 1",
		Moves: []string{"b8a8", "b2d2"},
		Goal:  puzzle.MateIn(4),
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, fake.calls)
}

// Tablebase answers along three win and draw lines, from the solver's side.
var outcomeFixtures = map[string]*oracle.Response{
	// 8/2R5/1P4p1/2K5/5pk1/5b2/8/8 w: black wins until White queens first.
	"8/8/1PR3p1/2K5/5pk1/5b2/8/8 b": {
		Category: oracle.Win,
		Replies: []oracle.Reply{
			{UCI: "f3c6", SAN: "Bxc6", Category: oracle.Loss},
			{UCI: "f3e4", SAN: "Be4", Category: oracle.Draw},
		},
	},
	"8/8/1PK3p1/8/5pk1/8/8/8 b": {
		Category: oracle.Win,
		Replies: []oracle.Reply{
			{UCI: "f4f3", SAN: "f3", Category: oracle.Loss},
			{UCI: "g4f5", SAN: "Kf5", Category: oracle.Draw},
		},
	},
	"8/1P6/2K3p1/8/6k1/5p2/8/8 b": {
		Category: oracle.Win,
		Replies: []oracle.Reply{
			{UCI: "f3f2", SAN: "f2", Category: oracle.Loss},
			{UCI: "g4g3", SAN: "Kg3", Category: oracle.Draw},
		},
	},
	"1Q6/8/2K3p1/8/6k1/8/5p2/8 b": {
		Category: oracle.Draw,
		Replies: []oracle.Reply{
			{UCI: "f2f1q", SAN: "f1=Q", Category: oracle.Draw},
			{UCI: "g4g3", SAN: "Kg3", Category: oracle.Win},
		},
	},

	// 8/8/8/P6R/5K2/1r5p/5k2/8 w: the last pawn push has a twin.
	"8/8/P7/7R/5K2/1r5p/5k2/8 b": {
		Category: oracle.Win,
		Replies: []oracle.Reply{
			{UCI: "b3b4", SAN: "Rb4+", Category: oracle.Loss},
			{UCI: "b3b1", SAN: "Rb1", Category: oracle.Draw},
		},
	},
	"8/8/P7/6KR/1r6/7p/5k2/8 b": {
		Category: oracle.Win,
		Replies: []oracle.Reply{
			{UCI: "b4b5", SAN: "Rb5+", Category: oracle.Loss},
			{UCI: "b4a4", SAN: "Ra4", Category: oracle.Draw},
		},
	},
	"8/8/P5K1/1r5R/8/7p/5k2/8 b": {
		Category: oracle.Win,
		Replies: []oracle.Reply{
			{UCI: "b5h5", SAN: "Rxh5", Category: oracle.Loss},
			{UCI: "b5b6", SAN: "Rb6+", Category: oracle.BlessedLoss},
		},
	},
	"8/8/P7/7K/8/7p/5k2/8 b": {
		Category: oracle.Win,
		Replies: []oracle.Reply{
			{UCI: "h3h2", SAN: "h2", Category: oracle.Loss},
			{UCI: "f2g2", SAN: "Kg2", Category: oracle.Loss},
		},
	},

	// 8/8/8/K1Pk1pp1/8/7P/1P6/8 w: tagged equality, but Black ends up lost.
	"8/8/8/K1Pk1pp1/1P6/7P/8/8 b": {
		Category: oracle.Draw,
		Replies: []oracle.Reply{
			{UCI: "g5g4", SAN: "g4", Category: oracle.Draw},
			{UCI: "f5f4", SAN: "f4", Category: oracle.Draw},
			{UCI: "d5c4", SAN: "Kc4", Category: oracle.Win},
		},
	},
	"8/8/8/K1Pk1p2/1P4P1/8/8/8 b": {
		Category: oracle.Draw,
		Replies: []oracle.Reply{
			{UCI: "f5g4", SAN: "fxg4", Category: oracle.Draw},
			{UCI: "d5e4", SAN: "Ke4", Category: oracle.Win},
		},
	},
	"8/8/8/KPPk4/6p1/8/8/8 b": {
		Category: oracle.Loss,
		Replies: []oracle.Reply{
			{UCI: "g4g3", SAN: "g3", Category: oracle.Win},
			{UCI: "d5c5", SAN: "Kxc5", Category: oracle.Win},
		},
	},
	"8/8/2P5/KP1k4/8/6p1/8/8 b": {
		Category: oracle.Loss,
		Replies: []oracle.Reply{
			{UCI: "d5d6", SAN: "Kd6", Category: oracle.Win},
			{UCI: "g3g2", SAN: "g2", Category: oracle.Win},
		},
	},
}

func TestEngine_OutcomeFixtures(t *testing.T) {
	tests := []struct {
		name  string
		fen   string
		moves string
		goal  puzzle.Goal
		want  puzzle.Finding
	}{
		{
			name:  "win thrown away on the last move",
			fen:   "8/2R5/1P4p1/2K5/5pk1/5b2/8/8 w - - 0 50",
			moves: "c7c6 f3c6 c5c6 f4f3 b6b7 f3f2 b7b8q f2f1q",
			goal:  puzzle.Win(),
			want:  puzzle.NewFinding(puzzle.Wrong),
		},
		{
			name:  "win with a second winning move",
			fen:   "8/8/8/P6R/5K2/1r5p/5k2/8 w - - 3 57",
			moves: "a5a6 b3b4 f4g5 b4b5 g5g6 b5h5 g6h5 h3h2",
			goal:  puzzle.Win(),
			want:  puzzle.NewFinding(puzzle.Multiple),
		},
		{
			name:  "draw that is lost and has twins",
			fen:   "8/8/8/K1Pk1pp1/8/7P/1P6/8 w - - 0 43",
			moves: "b2b4 g5g4 h3g4 f5g4 b4b5 g4g3 c5c6 d5d6",
			goal:  puzzle.Draw(),
			want:  puzzle.NewFinding(puzzle.Wrong, puzzle.Multiple),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Collector
			fake := &fakeOracle{t: t, responses: outcomeFixtures}
			e := NewEngine(EngineConfig{Oracle: fake, Sink: &c, Logger: zerolog.Nop()})

			got, err := e.Verify(context.Background(), puzzle.Puzzle{
				ID:    "line",
				FEN:   tt.fen,
				Moves: strings.Fields(tt.moves),
				Goal:  tt.goal,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got, "got %s", got)
			assert.Len(t, fake.calls, 4)

			var reported puzzle.Finding
			for _, d := range c.Diagnostics {
				reported = reported.Add(d.Kind)
			}
			assert.Equal(t, got, reported)
		})
	}
}
