package board

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountPieces(t *testing.T) {
	tests := []struct {
		fen  string
		want int
	}{
		{"rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1", 32},
		{"1k6/2Q5/1K6/8/8/8/8/4qq2 b - - 0 1", 5},
		{"8/8/8/8/8/8/8/8 w - - 0 1", 0},
		{"1k6/8/1K6/8/8/8/1R6/8", 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CountPieces(tt.fen), tt.fen)
	}
}

func TestLookupKey(t *testing.T) {
	assert.Equal(t, "k7/2Q5/1K6/8/8/8/8/4qq2 w - - 1", LookupKey("k7/2Q5/1K6/8/8/8/8/4qq2 w - - 1 2"))
	assert.Equal(t, "k7/2Q5/1K6/8/8/8/8/4qq2 w - - 1", LookupKey("k7/2Q5/1K6/8/8/8/8/4qq2 w - - 1 40"))
	assert.NotEqual(t, LookupKey("k7/2Q5/1K6/8/8/8/8/4qq2 w - - 1 2"), LookupKey("k7/2Q5/1K6/8/8/8/8/4qq2 w - - 90 2"))
	assert.Equal(t, "8/8/8/8/8/8/8/8", LookupKey("8/8/8/8/8/8/8/8"))
}

func TestBoard_ApplyAndCount(t *testing.T) {
	b, err := New("1k6/2Q5/1K6/8/8/8/8/4qq2 b - - 0 1")
	require.NoError(t, err)
	assert.Equal(t, 5, b.PieceCount())

	require.NoError(t, b.Apply("b8a8"))
	assert.True(t, strings.HasPrefix(b.FEN(), "k7/2Q5/1K6/8/8/8/8/4qq2 w "), b.FEN())

	require.NoError(t, b.Apply("c7c8"))
	assert.Equal(t, 5, b.PieceCount())
}

func TestBoard_CaptureReducesCount(t *testing.T) {
	b, err := New("4k3/8/8/8/8/8/3q4/3QK3 w - - 0 1")
	require.NoError(t, err)
	assert.Equal(t, 4, b.PieceCount())

	require.NoError(t, b.Apply("d1d2"))
	assert.Equal(t, 3, b.PieceCount())
}

func TestBoard_IllegalMove(t *testing.T) {
	b, err := New("1k6/8/1K6/8/8/8/1R6/8 b - - 0 1")
	require.NoError(t, err)

	err = b.Apply("b8b7") // adjacent to the white king
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIllegalMove))
	assert.Contains(t, err.Error(), "b8b7")
	assert.True(t, strings.HasPrefix(b.FEN(), "1k6/8/1K6/8/8/8/1R6/8 b "), b.FEN())

	err = b.Apply("zz")
	assert.Error(t, err)
}
