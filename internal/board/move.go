package board

import "fmt"

// Move encoding (uint32):
//   bits 0-5:   from square (0-63)
//   bits 6-11:  to square (0-63)
//   bits 12-14: promotion piece (0=none, 1=Q, 2=R, 3=B, 4=N)

// Move is a decoded UCI move token.
type Move uint32

const (
	moveFromMask   = 0x3F   // bits 0-5
	moveToMask     = 0xFC0  // bits 6-11
	movePromoMask  = 0x7000 // bits 12-14
	movePromoShift = 12
	moveToShift    = 6
)

// Promotion piece types
const (
	PromoNone   = 0
	PromoQueen  = 1
	PromoRook   = 2
	PromoBishop = 3
	PromoKnight = 4
)

// EncodeMove creates a Move from square indices and optional promotion.
// from, to: square indices 0-63 (A1=0, B1=1, ..., H8=63)
func EncodeMove(from, to int, promo byte) Move {
	if from < 0 || from > 63 || to < 0 || to > 63 {
		return 0
	}
	m := uint32(from) | (uint32(to) << moveToShift) | (uint32(promo) << movePromoShift)
	return Move(m)
}

// From returns the source square index (0-63).
func (m Move) From() int {
	return int(m & moveFromMask)
}

// To returns the destination square index (0-63).
func (m Move) To() int {
	return int((m & moveToMask) >> moveToShift)
}

// Promotion returns the promotion piece (0=none, 1=Q, 2=R, 3=B, 4=N).
func (m Move) Promotion() byte {
	return byte((m & movePromoMask) >> movePromoShift)
}

// String returns the UCI notation (e.g., "e2e4", "e7e8q").
func (m Move) String() string {
	return squareName(m.From()) + squareName(m.To()) + promoSuffix(m.Promotion())
}

// ParseMove parses a UCI move token such as "e2e4" or "e7e8q".
func ParseMove(uci string) (Move, error) {
	if len(uci) < 4 || len(uci) > 5 {
		return 0, fmt.Errorf("invalid UCI move length: %q", uci)
	}

	fromFile := int(uci[0]) - 'a'
	fromRank := int(uci[1]) - '1'
	toFile := int(uci[2]) - 'a'
	toRank := int(uci[3]) - '1'

	if fromFile < 0 || fromFile > 7 || fromRank < 0 || fromRank > 7 {
		return 0, fmt.Errorf("invalid from square in UCI: %q", uci)
	}
	if toFile < 0 || toFile > 7 || toRank < 0 || toRank > 7 {
		return 0, fmt.Errorf("invalid to square in UCI: %q", uci)
	}

	var promo byte = PromoNone
	if len(uci) == 5 {
		switch uci[4] {
		case 'q', 'Q':
			promo = PromoQueen
		case 'r', 'R':
			promo = PromoRook
		case 'b', 'B':
			promo = PromoBishop
		case 'n', 'N':
			promo = PromoKnight
		default:
			return 0, fmt.Errorf("invalid promotion piece in UCI: %q", uci)
		}
	}

	return EncodeMove(fromRank*8+fromFile, toRank*8+toFile, promo), nil
}

func squareName(sq int) string {
	return string([]byte{byte('a' + sq%8), byte('1' + sq/8)})
}

func promoSuffix(promo byte) string {
	switch promo {
	case PromoQueen:
		return "q"
	case PromoRook:
		return "r"
	case PromoBishop:
		return "b"
	case PromoKnight:
		return "n"
	}
	return ""
}
