// Package board replays puzzle lines on top of the pgn move generator.
package board

import (
	"errors"
	"fmt"
	"strings"

	"github.com/freeeve/pgn/v3"
)

// ErrIllegalMove is returned when a move token is not legal in the position.
var ErrIllegalMove = errors.New("illegal move")

// Board is a mutable position that accepts UCI move tokens.
type Board struct {
	pos *pgn.GameState
}

// New parses a FEN into a Board.
func New(fen string) (*Board, error) {
	pos, err := pgn.NewGame(fen)
	if err != nil {
		return nil, fmt.Errorf("parse FEN %q: %w", fen, err)
	}
	return &Board{pos: pos}, nil
}

// FEN returns the current position as FEN.
func (b *Board) FEN() string {
	return b.pos.ToFEN()
}

// PieceCount returns the number of men on the board, kings included.
func (b *Board) PieceCount() int {
	return CountPieces(b.pos.ToFEN())
}

// Apply plays a UCI move token. The board is unchanged on error.
func (b *Board) Apply(uci string) error {
	want, err := ParseMove(uci)
	if err != nil {
		return err
	}

	legal := pgn.GenerateLegalMoves(b.pos)
	for _, mv := range legal {
		if int(mv.From) == want.From() && int(mv.To) == want.To() && promoCode(mv) == want.Promotion() {
			return b.apply(mv, uci)
		}
	}

	// Castling may be encoded king-takes-rook by the generator.
	if isCastleToken(want) {
		for _, mv := range legal {
			from, to := int(mv.From), int(mv.To)
			if from != want.From() || from/8 != to/8 || absDiff(from, to) < 2 {
				continue
			}
			if (to > from) == (want.To() > want.From()) {
				return b.apply(mv, uci)
			}
		}
	}

	return fmt.Errorf("%w: %s in %s", ErrIllegalMove, want, b.FEN())
}

func (b *Board) apply(mv pgn.Mv, uci string) error {
	if err := pgn.ApplyMove(b.pos, mv); err != nil {
		return fmt.Errorf("apply %s: %w", uci, err)
	}
	return nil
}

// CountPieces counts the men in the placement field of a FEN.
func CountPieces(fen string) int {
	placement, _, _ := strings.Cut(strings.TrimSpace(fen), " ")
	n := 0
	for i := 0; i < len(placement); i++ {
		c := placement[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			n++
		}
	}
	return n
}

// LookupKey drops the fullmove number from a FEN. The halfmove clock stays:
// it can change the outcome under the 50-move rule.
func LookupKey(fen string) string {
	fields := strings.Fields(fen)
	if len(fields) == 6 {
		fields = fields[:5]
	}
	return strings.Join(fields, " ")
}

func promoCode(mv pgn.Mv) byte {
	switch mv.Promo {
	case pgn.PromoQueen:
		return PromoQueen
	case pgn.PromoRook:
		return PromoRook
	case pgn.PromoBishop:
		return PromoBishop
	case pgn.PromoKnight:
		return PromoKnight
	}
	return PromoNone
}

// isCastleToken reports whether m is a two-file move from e1 or e8.
func isCastleToken(m Move) bool {
	from, to := m.From(), m.To()
	return (from == 4 || from == 60) && from/8 == to/8 && absDiff(from, to) == 2
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
