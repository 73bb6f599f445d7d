package oracle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThrottle_SpacesCallsRegardlessOfOutcome(t *testing.T) {
	var stamps []time.Time
	fail := true
	inner := Func(func(ctx context.Context, fen string) (*Response, error) {
		stamps = append(stamps, time.Now())
		fail = !fail
		if fail {
			return nil, errors.New("boom")
		}
		return &Response{Category: Draw}, nil
	})

	const interval = 40 * time.Millisecond
	th := NewThrottle(inner, interval)
	for i := 0; i < 4; i++ {
		_, _ = th.Classify(context.Background(), "fen")
	}

	require.Len(t, stamps, 4)
	for i := 1; i < len(stamps); i++ {
		gap := stamps[i].Sub(stamps[i-1])
		assert.GreaterOrEqual(t, gap, interval-5*time.Millisecond, "gap %d", i)
	}
}

func TestThrottle_ZeroIntervalDoesNotWait(t *testing.T) {
	calls := 0
	th := NewThrottle(Func(func(ctx context.Context, fen string) (*Response, error) {
		calls++
		return &Response{Category: Win}, nil
	}), 0)

	start := time.Now()
	for i := 0; i < 100; i++ {
		_, err := th.Classify(context.Background(), "fen")
		require.NoError(t, err)
	}
	assert.Equal(t, 100, calls)
	assert.Less(t, time.Since(start), time.Second)
}

func TestThrottle_HonoursContext(t *testing.T) {
	th := NewThrottle(Func(func(ctx context.Context, fen string) (*Response, error) {
		return &Response{Category: Win}, nil
	}), time.Hour)

	_, err := th.Classify(context.Background(), "fen")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = th.Classify(ctx, "fen")
	assert.Error(t, err)
}
