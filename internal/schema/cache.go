package schema

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

const refreshTimeout = 5 * time.Second

func contextWithRefreshTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), refreshTimeout)
}

// catalogCache holds the entity catalog with a TTL and
// stale-while-revalidate semantics: expired entries are still served while
// exactly one goroutine refreshes in the background.
type catalogCache struct {
	mu       sync.RWMutex
	entities []Entity
	loaded   bool
	expires  time.Time
	ttl      time.Duration

	refreshing atomic.Bool
}

type catalogCacheResult struct {
	Entities     []Entity
	Hit          bool
	NeedsRefresh bool
}

func newCatalogCache(ttlSeconds int) *catalogCache {
	return &catalogCache{ttl: time.Duration(ttlSeconds) * time.Second}
}

// Get performs a non-blocking cache lookup. Stale entries are returned
// with NeedsRefresh=true for the single goroutine that wins the CAS.
func (c *catalogCache) Get() catalogCacheResult {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.loaded {
		return catalogCacheResult{Hit: false}
	}
	if time.Now().Before(c.expires) {
		return catalogCacheResult{Entities: c.entities, Hit: true}
	}

	needsRefresh := c.refreshing.CompareAndSwap(false, true)
	return catalogCacheResult{
		Entities:     c.entities,
		Hit:          true,
		NeedsRefresh: needsRefresh,
	}
}

// Set stores a fresh catalog with a new TTL.
func (c *catalogCache) Set(entities []Entity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entities = entities
	c.loaded = true
	c.expires = time.Now().Add(c.ttl)
	c.refreshing.Store(false)
}
