package match

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/jobradar/jobradar/internal/domain"
)

// Cache defaults.
const (
	DefaultCacheTTL     = 5 * time.Minute
	DefaultCacheEntries = 1000
)

// Cache stores ranking results keyed by candidate and filters. Entries
// expire by time, never by event.
type Cache interface {
	Get(ctx context.Context, candidateID string, filters Filters) ([]domain.MatchResult, bool)
	Set(ctx context.Context, candidateID string, filters Filters, results []domain.MatchResult)
}

func cacheKey(candidateID string, filters Filters) string {
	return "rank:" + candidateID + ":" + filters.Key()
}

// lruEntry is one cached ranking with its expiry.
type lruEntry struct {
	key       string
	results   []domain.MatchResult
	expiresAt time.Time
}

// LRUCache is an in-process bounded cache with TTL expiry. Eviction is
// least-recently-used once the entry cap is reached, so memory stays
// bounded regardless of candidate count.
type LRUCache struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	order      *list.List
	entries    map[string]*list.Element
	now        func() time.Time
}

// NewLRUCache creates a bounded TTL cache.
func NewLRUCache(ttl time.Duration, maxEntries int) *LRUCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultCacheEntries
	}
	return &LRUCache{
		ttl:        ttl,
		maxEntries: maxEntries,
		order:      list.New(),
		entries:    make(map[string]*list.Element),
		now:        time.Now,
	}
}

// Get returns the cached ranking when present and unexpired.
func (c *LRUCache) Get(_ context.Context, candidateID string, filters Filters) ([]domain.MatchResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[cacheKey(candidateID, filters)]
	if !ok {
		return nil, false
	}

	entry := elem.Value.(*lruEntry)
	if c.now().After(entry.expiresAt) {
		c.removeLocked(elem)
		return nil, false
	}

	c.order.MoveToFront(elem)
	return entry.results, true
}

// Set stores a ranking, evicting the least recently used entry when full.
func (c *LRUCache) Set(_ context.Context, candidateID string, filters Filters, results []domain.MatchResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(candidateID, filters)
	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*lruEntry)
		entry.results = results
		entry.expiresAt = c.now().Add(c.ttl)
		c.order.MoveToFront(elem)
		return
	}

	elem := c.order.PushFront(&lruEntry{
		key:       key,
		results:   results,
		expiresAt: c.now().Add(c.ttl),
	})
	c.entries[key] = elem

	for c.order.Len() > c.maxEntries {
		c.removeLocked(c.order.Back())
	}
}

// Len returns the number of live entries. Test hook.
func (c *LRUCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *LRUCache) removeLocked(elem *list.Element) {
	if elem == nil {
		return
	}
	entry := elem.Value.(*lruEntry)
	delete(c.entries, entry.key)
	c.order.Remove(elem)
}
