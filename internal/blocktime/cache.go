package blocktime

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/autonomoussoftware/metronome-data-analysis/internal/metrics"
)

// TimeResolver resolves a point in time to a block index.
type TimeResolver interface {
	Resolve(ctx context.Context, target time.Time) (uint64, error)
}

// Cache memoizes successful resolutions for the life of the process and
// collapses concurrent lookups of the same time into one search.
// Failures are not cached.
type Cache struct {
	resolver TimeResolver
	group    singleflight.Group
	logger   *zap.Logger

	mu      sync.RWMutex
	results map[int64]uint64
}

// NewCache wraps resolver with a memoizing single-flight cache.
func NewCache(resolver TimeResolver, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		resolver: resolver,
		logger:   logger,
		results:  make(map[int64]uint64),
	}
}

// Resolve returns the cached index for target or runs a single shared
// search for it. A caller whose context ends stops waiting; the search
// keeps running for the other waiters.
func (c *Cache) Resolve(ctx context.Context, target time.Time) (uint64, error) {
	key := target.UnixMilli()
	if index, ok := c.get(key); ok {
		metrics.ObserveCache("hit")
		return index, nil
	}

	searchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(strconv.FormatInt(key, 10), func() (interface{}, error) {
		if index, ok := c.get(key); ok {
			return index, nil
		}
		index, err := c.resolver.Resolve(searchCtx, target)
		if err != nil {
			return uint64(0), err
		}
		c.set(key, index)
		return index, nil
	})

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case res := <-ch:
		if res.Shared {
			metrics.ObserveCache("shared")
		} else {
			metrics.ObserveCache("miss")
		}
		if res.Err != nil {
			return 0, res.Err
		}
		index := res.Val.(uint64)
		c.logger.Debug("block resolved", zap.Time("target", target), zap.Uint64("block", index), zap.Bool("shared", res.Shared))
		return index, nil
	}
}

// Len returns the number of cached resolutions.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.results)
}

func (c *Cache) get(key int64) (uint64, bool) {
	c.mu.RLock()
	index, ok := c.results[key]
	c.mu.RUnlock()
	return index, ok
}

func (c *Cache) set(key int64, index uint64) {
	c.mu.Lock()
	c.results[key] = index
	c.mu.Unlock()
}
