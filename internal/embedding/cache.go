package embedding

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cached memoises another embedder's results in an LRU cache keyed by the
// trimmed text. It assumes the wrapped provider is pure.
type Cached struct {
	inner Embedder
	cache *lru.Cache[string, []float32]

	hits   atomic.Int64
	misses atomic.Int64
}

// CacheStats contains embedding cache statistics.
type CacheStats struct {
	Hits   int64
	Misses int64
	Size   int
}

// NewCached wraps inner with an LRU cache of at most size entries.
func NewCached(inner Embedder, size int) (*Cached, error) {
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return &Cached{inner: inner, cache: cache}, nil
}

// Embed returns the cached vector for text or computes and stores it.
// Callers must not modify the returned slice.
func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	key := strings.TrimSpace(text)
	if vec, ok := c.cache.Get(key); ok {
		c.hits.Add(1)
		return vec, nil
	}
	c.misses.Add(1)

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, vec)
	return vec, nil
}

// Dimension delegates to the wrapped embedder.
func (c *Cached) Dimension() int { return c.inner.Dimension() }

// ModelName delegates to the wrapped embedder.
func (c *Cached) ModelName() string { return c.inner.ModelName() }

// Stats returns hit and miss counters.
func (c *Cached) Stats() CacheStats {
	return CacheStats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Size:   c.cache.Len(),
	}
}
