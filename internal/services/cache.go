// Package services provides the process-wide cache of connected
// multi-collection memory managers, with single-flight construction
// so concurrent requests for the same configuration share one
// backend connection.
package services

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/fathomworks/memvault/internal/memory"
)

// BuildFunc constructs a connected manager for a cache key.
type BuildFunc func(ctx context.Context) (*memory.Manager, error)

// Cache memoizes connected managers by canonical key. A successful
// build is reused for the lifetime of the process; a failed build is
// never cached, so the next call for the same key retries from
// scratch. Safe for concurrent use.
type Cache struct {
	logger *zap.Logger

	group singleflight.Group

	mu       sync.RWMutex
	managers map[string]*memory.Manager
}

// NewCache creates an empty cache.
func NewCache(logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		logger:   logger.Named("services"),
		managers: make(map[string]*memory.Manager),
	}
}

// GetOrCreate returns the cached manager for key, building it with
// build if absent. At most one build per key runs at a time;
// concurrent callers for the same key all receive the result of the
// single in-flight build.
func (c *Cache) GetOrCreate(ctx context.Context, key string, build BuildFunc) (*memory.Manager, error) {
	// Fast path: check cache with read lock.
	c.mu.RLock()
	if mgr, ok := c.managers[key]; ok {
		c.mu.RUnlock()
		return mgr, nil
	}
	c.mu.RUnlock()

	v, err, _ := c.group.Do(key, func() (any, error) {
		// Re-check under the flight: a previous flight may have
		// populated the entry between our read and Do.
		c.mu.RLock()
		mgr, ok := c.managers[key]
		c.mu.RUnlock()
		if ok {
			return mgr, nil
		}

		mgr, err := build(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.managers[key] = mgr
		c.mu.Unlock()

		c.logger.Info("cached memory service")
		return mgr, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*memory.Manager), nil
}

// Len returns the number of cached managers.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.managers)
}

// Close disconnects every cached manager and empties the cache.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, mgr := range c.managers {
		mgr.Disconnect()
		delete(c.managers, key)
	}
}
