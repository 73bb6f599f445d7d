// Package oracle queries an endgame tablebase for the game-theoretic value of
// a position and of every legal reply.
package oracle

import (
	"context"
	"errors"
	"fmt"
)

// Oracle classifies positions. Implementations must be safe to call
// sequentially; callers never issue concurrent lookups.
type Oracle interface {
	Classify(ctx context.Context, fen string) (*Response, error)
}

// Func adapts a function to the Oracle interface.
type Func func(ctx context.Context, fen string) (*Response, error)

// Classify calls f.
func (f Func) Classify(ctx context.Context, fen string) (*Response, error) {
	return f(ctx, fen)
}

// Category is the tablebase outcome of a position for the side to move.
type Category uint8

const (
	Win Category = iota + 1
	CursedWin
	Draw
	BlessedLoss
	Loss
)

var categoryNames = map[Category]string{
	Win:         "win",
	CursedWin:   "cursed-win",
	Draw:        "draw",
	BlessedLoss: "blessed-loss",
	Loss:        "loss",
}

func (c Category) String() string {
	if s, ok := categoryNames[c]; ok {
		return s
	}
	return fmt.Sprintf("Category(%d)", uint8(c))
}

// IsDraw reports whether the outcome counts as a draw under the 50-move
// rule: a plain draw, or a win/loss that cannot be forced in time.
func (c Category) IsDraw() bool {
	return c == Draw || c == CursedWin || c == BlessedLoss
}

// ParseCategory maps the tablebase vocabulary onto Category. Anything outside
// the closed set (e.g. "unknown", "maybe-win") is rejected.
func ParseCategory(s string) (Category, error) {
	for c, name := range categoryNames {
		if name == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: category %q", ErrMalformed, s)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	s, ok := categoryNames[c]
	if !ok {
		return nil, fmt.Errorf("invalid category %d", uint8(c))
	}
	return []byte(s), nil
}

// Response is the tablebase answer for one position.
type Response struct {
	Category  Category `json:"category"`
	DTM       *int     `json:"dtm"` // plies to mate, signed for the side to move; nil if unknown
	DTZ       *int     `json:"dtz"`
	Checkmate bool     `json:"checkmate"`
	Stalemate bool     `json:"stalemate"`
	Replies   []Reply  `json:"moves"`
}

// Reply is one legal move with the outcome from the replying side's
// perspective, i.e. inverted relative to the mover.
type Reply struct {
	UCI       string   `json:"uci"`
	SAN       string   `json:"san"`
	Category  Category `json:"category"`
	DTM       *int     `json:"dtm"`
	DTZ       *int     `json:"dtz"`
	Checkmate bool     `json:"checkmate"`
	Zeroing   bool     `json:"zeroing"`
}

var (
	// ErrMalformed marks a payload that does not fit the response model.
	ErrMalformed = errors.New("malformed oracle response")
	// ErrUnreachable marks a lookup where no attempt ever got an HTTP response.
	ErrUnreachable = errors.New("oracle unreachable")
)

// Error is returned when a lookup fails for good.
type Error struct {
	FEN         string
	Status      int // last HTTP status, 0 if none
	Attempts    int
	Unreachable bool
	Err         error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("oracle lookup %q failed after %d attempt(s), status %d: %v", e.FEN, e.Attempts, e.Status, e.Err)
	}
	return fmt.Sprintf("oracle lookup %q failed after %d attempt(s): %v", e.FEN, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrUnreachable) match lookups that never reached the server.
func (e *Error) Is(target error) bool {
	return target == ErrUnreachable && e.Unreachable
}

// Validate checks the invariants the verifier relies on.
func (r *Response) Validate() error {
	if r.Category == 0 {
		return fmt.Errorf("%w: missing category", ErrMalformed)
	}
	for i, rep := range r.Replies {
		if rep.UCI == "" {
			return fmt.Errorf("%w: reply %d has no move", ErrMalformed, i)
		}
		if rep.Category == 0 {
			return fmt.Errorf("%w: reply %s has no category", ErrMalformed, rep.UCI)
		}
	}
	return nil
}
