package verify

import (
	"github.com/rs/zerolog"

	"github.com/freeeve/puzzlecheck/internal/puzzle"
)

// Diagnostic is one Wrong or Multiple condition observed while verifying a
// puzzle.
type Diagnostic struct {
	PuzzleID string
	FEN      string
	Kind     puzzle.ErrorKind
	Move     string
	Detail   string
}

// Sink receives diagnostics as they are found.
type Sink interface {
	Report(Diagnostic)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Diagnostic)

// Report calls f.
func (f SinkFunc) Report(d Diagnostic) { f(d) }

// LogSink writes diagnostics to a zerolog logger at error level.
type LogSink struct {
	Logger zerolog.Logger
}

func (s LogSink) Report(d Diagnostic) {
	ev := s.Logger.Error().
		Str("puzzle", d.PuzzleID).
		Str("kind", d.Kind.String()).
		Str("fen", d.FEN)
	if d.Move != "" {
		ev = ev.Str("move", d.Move)
	}
	ev.Msg(d.Detail)
}

// Collector keeps every diagnostic in memory.
type Collector struct {
	Diagnostics []Diagnostic
}

func (c *Collector) Report(d Diagnostic) {
	c.Diagnostics = append(c.Diagnostics, d)
}
