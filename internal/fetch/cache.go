package fetch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourorg/trader-leaderboard/internal/model"
)

// CachedSource serves the last fetched collection until its TTL expires.
type CachedSource struct {
	source Source
	ttl    time.Duration
	now    func() time.Time

	mutex     sync.RWMutex
	cached    []model.Trader
	cacheTime time.Time
}

// NewCachedSource wraps source with a TTL cache.
func NewCachedSource(source Source, ttl time.Duration) *CachedSource {
	return &CachedSource{source: source, ttl: ttl, now: time.Now}
}

// Fetch returns the cached collection while fresh, otherwise fetches from
// the wrapped source.
func (c *CachedSource) Fetch(ctx context.Context) ([]model.Trader, error) {
	c.mutex.RLock()
	if c.cached != nil && c.now().Sub(c.cacheTime) < c.ttl {
		out := c.cached
		c.mutex.RUnlock()
		return out, nil
	}
	c.mutex.RUnlock()

	traders, err := c.source.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	c.mutex.Lock()
	c.cached = traders
	c.cacheTime = c.now()
	c.mutex.Unlock()
	return traders, nil
}

// Invalidate drops the cached collection.
func (c *CachedSource) Invalidate() {
	c.mutex.Lock()
	c.cached = nil
	c.mutex.Unlock()
}

func (c *CachedSource) Name() string { return c.source.Name() }

// FallbackSource tries its sources in order and returns the first
// collection fetched successfully.
type FallbackSource struct {
	sources []Source
}

func NewFallbackSource(sources ...Source) *FallbackSource {
	return &FallbackSource{sources: sources}
}

// Fetch returns the first successful result, or the last error when every
// source failed.
func (f *FallbackSource) Fetch(ctx context.Context) ([]model.Trader, error) {
	var lastErr error
	for _, s := range f.sources {
		traders, err := s.Fetch(ctx)
		if err == nil {
			return traders, nil
		}
		logrus.Warnf("Error fetching traders from %s: %v", s.Name(), err)
		lastErr = err
	}
	if lastErr == nil {
		return nil, ErrNoTraders
	}
	return nil, fmt.Errorf("all sources failed: %w", lastErr)
}

func (f *FallbackSource) Name() string { return "fallback" }
