package oracle

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Throttle spaces successive lookups at least interval apart, whether the
// previous lookup succeeded or not. Retries inside the wrapped oracle are not
// counted; only top-level calls are.
type Throttle struct {
	next    Oracle
	limiter *rate.Limiter
}

// NewThrottle wraps next. A zero interval disables spacing.
func NewThrottle(next Oracle, interval time.Duration) *Throttle {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Throttle{next: next, limiter: rate.NewLimiter(limit, 1)}
}

// Classify waits for the next slot, then delegates.
func (t *Throttle) Classify(ctx context.Context, fen string) (*Response, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.next.Classify(ctx, fen)
}
