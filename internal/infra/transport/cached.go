package transport

import (
	"context"

	"github.com/vietddude/sessionguard/internal/core/domain"
	"github.com/vietddude/sessionguard/internal/monitoring/metrics"
)

// ResultCache stores operation results for the current identity. The
// generation changes whenever the identity does.
type ResultCache interface {
	Get(key string) (any, bool)
	Generation() uint64
	AddIfGeneration(gen uint64, key string, value any) bool
}

// Cached serves operations that carry a CacheKey from cache. Only successful
// results are stored, so a cached entry never hides a failure.
type Cached struct {
	next  Transport
	cache ResultCache
}

// NewCached wraps next with cache.
func NewCached(next Transport, cache ResultCache) *Cached {
	return &Cached{next: next, cache: cache}
}

func (c *Cached) Forward(ctx context.Context, op *domain.Operation) (any, error) {
	if op.CacheKey == "" {
		return c.next.Forward(ctx, op)
	}
	if v, ok := c.cache.Get(op.CacheKey); ok {
		metrics.CacheHits.Inc()
		return v, nil
	}

	gen := c.cache.Generation()
	result, err := c.next.Forward(ctx, op)
	if err != nil {
		return nil, err
	}
	// Dropped when the session ended while the request was in flight
	c.cache.AddIfGeneration(gen, op.CacheKey, result)
	return result, nil
}
