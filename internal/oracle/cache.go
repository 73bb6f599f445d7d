package oracle

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/freeeve/puzzlecheck/internal/board"
	"github.com/freeeve/puzzlecheck/internal/metrics"
)

// Cache memoises successful lookups for the life of a run. Errors are never
// cached.
type Cache struct {
	next Oracle

	mu        sync.RWMutex
	responses map[string]*Response

	hits   int64
	misses int64
}

// NewCache wraps next.
func NewCache(next Oracle) *Cache {
	return &Cache{
		next:      next,
		responses: make(map[string]*Response),
	}
}

// Classify returns the cached response for fen or delegates and stores it.
func (c *Cache) Classify(ctx context.Context, fen string) (*Response, error) {
	key := board.LookupKey(fen)

	c.mu.RLock()
	resp, ok := c.responses[key]
	c.mu.RUnlock()
	if ok {
		atomic.AddInt64(&c.hits, 1)
		metrics.OracleCacheHits.Inc()
		return resp, nil
	}

	atomic.AddInt64(&c.misses, 1)
	resp, err := c.next.Classify(ctx, fen)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.responses[key] = resp
	c.mu.Unlock()
	return resp, nil
}

// Len returns the number of cached positions.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.responses)
}

// Stats returns hit and miss counts.
func (c *Cache) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}
