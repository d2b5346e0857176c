package index

import (
	"context"
	"sync"
	"time"

	"github.com/dl-alexandre/gdsync/internal/logging"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Source produces index snapshots
type Source interface {
	List(ctx context.Context) (Snapshot, error)
}

// CachedIndex serves snapshots from memory for up to ttl. Writers must call
// Invalidate after any remote mutation so the next List goes to Drive.
// A listing that was already running when Invalidate was called is returned
// to its caller but never cached.
type CachedIndex struct {
	source Source
	key    string
	cache  *expirable.LRU[string, Snapshot]
	logger logging.Logger

	mu         sync.Mutex
	generation uint64
}

// NewCachedIndex wraps source with a TTL cache
func NewCachedIndex(source Source, key string, ttl time.Duration, logger logging.Logger) *CachedIndex {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &CachedIndex{
		source: source,
		key:    key,
		cache:  expirable.NewLRU[string, Snapshot](1, nil, ttl),
		logger: logger,
	}
}

func (c *CachedIndex) List(ctx context.Context) (Snapshot, error) {
	if snapshot, ok := c.cache.Get(c.key); ok {
		c.logger.Debug("Remote index cache hit", logging.F("count", len(snapshot)))
		return cloneSnapshot(snapshot), nil
	}

	c.mu.Lock()
	generation := c.generation
	c.mu.Unlock()

	snapshot, err := c.source.List(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != generation {
		c.logger.Debug("Remote index changed during listing, not caching")
		return snapshot, nil
	}
	c.cache.Add(c.key, cloneSnapshot(snapshot))
	return snapshot, nil
}

// Invalidate drops the cached snapshot and any listing still in progress
func (c *CachedIndex) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.cache.Purge()
}
