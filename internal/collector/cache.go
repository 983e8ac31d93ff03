package collector

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"FiftySentinel/internal/model"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

type cacheKey struct {
	symbol      string
	granularity model.Granularity
}

func (k cacheKey) String() string { return k.symbol + "|" + string(k.granularity) }

// CacheStats counts cache activity over the cache's lifetime.
type CacheStats struct {
	Fetches  int64 // provider calls
	Hits     int64 // served from an existing entry
	Shared   int64 // joined an in-flight fetch
	Failures int64 // provider calls that failed
}

// HistoryCache memoizes bar series per (symbol, granularity). Concurrent callers for the
// same key share one provider call; different keys never wait on each other.
type HistoryCache struct {
	fetcher Fetcher
	group   singleflight.Group
	now     func() time.Time
	logger  zerolog.Logger

	mu      sync.RWMutex
	entries map[cacheKey]model.Series

	fetches, hits, shared, failures atomic.Int64
}

// NewHistoryCache creates an empty cache in front of fetcher.
func NewHistoryCache(fetcher Fetcher) *HistoryCache {
	return &HistoryCache{
		fetcher: fetcher,
		now:     time.Now,
		logger:  log.With().Str("component", "history_cache").Str("provider", fetcher.Name()).Logger(),
		entries: make(map[cacheKey]model.Series),
	}
}

// Fetch returns the cached series for (symbol, g), fetching it when absent or when refresh
// is set. A failed fetch is logged and yields an empty series; it is never cached.
func (c *HistoryCache) Fetch(ctx context.Context, symbol string, g model.Granularity, period time.Duration, refresh bool) model.Series {
	key := cacheKey{symbol: symbol, granularity: g}
	if !refresh {
		if s, ok := c.lookup(key); ok {
			c.hits.Add(1)
			return s
		}
	}

	executed := false
	v, _, _ := c.group.Do(key.String(), func() (interface{}, error) {
		executed = true
		// A caller that missed just before the previous flight finished lands here.
		if !refresh {
			if s, ok := c.lookup(key); ok {
				c.hits.Add(1)
				return s, nil
			}
		}
		return c.load(ctx, key, period), nil
	})
	if !executed {
		c.shared.Add(1)
	}
	return v.(model.Series)
}

// Stats returns a snapshot of the cache counters.
func (c *HistoryCache) Stats() CacheStats {
	return CacheStats{
		Fetches:  c.fetches.Load(),
		Hits:     c.hits.Load(),
		Shared:   c.shared.Load(),
		Failures: c.failures.Load(),
	}
}

func (c *HistoryCache) lookup(key cacheKey) (model.Series, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.entries[key]
	return s, ok
}

func (c *HistoryCache) load(ctx context.Context, key cacheKey, period time.Duration) model.Series {
	c.fetches.Add(1)
	empty := model.Series{Symbol: key.symbol, Granularity: key.granularity}

	bars, err := c.fetcher.FetchBars(ctx, key.symbol, key.granularity, period)
	if err != nil {
		c.failures.Add(1)
		c.logger.Warn().Err(err).Str("symbol", key.symbol).Str("granularity", key.granularity.String()).
			Msg("history fetch failed")
		return empty
	}

	s := model.Series{
		Symbol:      key.symbol,
		Granularity: key.granularity,
		Bars:        AnchorBars(key.granularity, bars),
		FetchedAt:   c.now(),
	}
	c.mu.Lock()
	c.entries[key] = s
	c.mu.Unlock()

	c.logger.Debug().Str("symbol", key.symbol).Str("granularity", key.granularity.String()).
		Int("raw", len(bars)).Int("kept", len(s.Bars)).Msg("history cached")
	return s
}
