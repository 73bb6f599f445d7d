package oracle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache(t *testing.T) {
	calls := map[string]int{}
	failNext := false
	c := NewCache(Func(func(ctx context.Context, fen string) (*Response, error) {
		calls[fen]++
		if failNext {
			failNext = false
			return nil, errors.New("transient")
		}
		return &Response{Category: Win}, nil
	}))
	ctx := context.Background()

	_, err := c.Classify(ctx, "k7/8/1K6/8/8/8/1R6/8 w - - 1 2")
	require.NoError(t, err)
	// Same position, different fullmove number.
	_, err = c.Classify(ctx, "k7/8/1K6/8/8/8/1R6/8 w - - 1 40")
	require.NoError(t, err)
	assert.Equal(t, 1, calls["k7/8/1K6/8/8/8/1R6/8 w - - 1 2"])
	assert.Equal(t, 0, calls["k7/8/1K6/8/8/8/1R6/8 w - - 1 40"])

	// A different halfmove clock is a different lookup.
	_, err = c.Classify(ctx, "k7/8/1K6/8/8/8/1R6/8 w - - 30 40")
	require.NoError(t, err)
	assert.Equal(t, 1, calls["k7/8/1K6/8/8/8/1R6/8 w - - 30 40"])

	failNext = true
	_, err = c.Classify(ctx, "8/8/8/8/8/8/8/8 b - - 0 1")
	require.Error(t, err)
	_, err = c.Classify(ctx, "8/8/8/8/8/8/8/8 b - - 0 1")
	require.NoError(t, err)
	assert.Equal(t, 2, calls["8/8/8/8/8/8/8/8 b - - 0 1"])

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(4), misses)
	assert.Equal(t, 3, c.Len())
}
