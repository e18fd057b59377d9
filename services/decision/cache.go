package decision

import (
	"container/list"
	"sync"
	"time"

	"github.com/femto-apps/authz/models"
)

// cacheEntry represents a single cache entry with TTL
type cacheEntry struct {
	action     string
	statements []*models.Statement
	insertedAt time.Time
	element    *list.Element // For LRU tracking
}

// isExpired checks if the cache entry has expired
func (e *cacheEntry) isExpired(ttl time.Duration) bool {
	return time.Since(e.insertedAt) > ttl
}

// StatementCache is an in-memory LRU cache with TTL holding the candidate
// statements of each action. Thread-safe implementation using sync.Mutex.
//
// Every write to the statement store calls Clear, which also advances the
// generation. Loaders read Generation before going to storage and pass it to
// Set so that a load racing with a write never repopulates stale data.
type StatementCache struct {
	mu         sync.Mutex
	entries    map[string]*cacheEntry // Key: action
	lruList    *list.List             // Doubly linked list for LRU tracking
	maxSize    int                    // Maximum number of entries
	ttl        time.Duration          // Time-to-live for entries
	generation uint64
	hits       uint64
	misses     uint64
}

// NewStatementCache creates a new StatementCache with specified max size and TTL.
// A non-positive maxSize disables caching.
func NewStatementCache(maxSize int, ttl time.Duration) *StatementCache {
	return &StatementCache{
		entries: make(map[string]*cacheEntry),
		lruList: list.New(),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// Get retrieves the cached statements for action.
// ok is false if not found or expired.
func (c *StatementCache) Get(action string) (statements []*models.Statement, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[action]
	if !exists || entry.isExpired(c.ttl) {
		c.misses++
		if exists {
			c.removeEntry(action)
		}
		return nil, false
	}

	// Move to front (most recently used)
	c.lruList.MoveToFront(entry.element)
	c.hits++

	return entry.statements, true
}

// Generation returns the current invalidation generation
func (c *StatementCache) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// Set stores the statements for action if no invalidation happened since
// generation was read. It reports whether the entry was stored.
func (c *StatementCache) Set(action string, statements []*models.Statement, generation uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxSize <= 0 || generation != c.generation {
		return false
	}

	if entry, exists := c.entries[action]; exists {
		entry.statements = statements
		entry.insertedAt = time.Now()
		c.lruList.MoveToFront(entry.element)
		return true
	}

	if c.lruList.Len() >= c.maxSize {
		c.evictLRU()
	}

	entry := &cacheEntry{
		action:     action,
		statements: statements,
		insertedAt: time.Now(),
	}
	entry.element = c.lruList.PushFront(action)
	c.entries[action] = entry
	return true
}

// Clear removes all entries from the cache
func (c *StatementCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry)
	c.lruList.Init()
	c.generation++
}

// CacheStats represents cache statistics
type CacheStats struct {
	Size       int
	MaxSize    int
	Hits       uint64
	Misses     uint64
	HitRate    float64
	Generation uint64
}

// Stats returns cache statistics
func (c *StatementCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return CacheStats{
		Size:       c.lruList.Len(),
		MaxSize:    c.maxSize,
		Hits:       c.hits,
		Misses:     c.misses,
		HitRate:    c.calculateHitRate(),
		Generation: c.generation,
	}
}

// calculateHitRate calculates the cache hit rate
func (c *StatementCache) calculateHitRate() float64 {
	total := c.hits + c.misses
	if total == 0 {
		return 0
	}
	return float64(c.hits) / float64(total)
}

// removeEntry removes an entry from the cache (must be called with lock held)
func (c *StatementCache) removeEntry(action string) {
	if entry, exists := c.entries[action]; exists {
		c.lruList.Remove(entry.element)
		delete(c.entries, action)
	}
}

// evictLRU evicts the least recently used entry (must be called with lock held)
func (c *StatementCache) evictLRU() {
	back := c.lruList.Back()
	if back == nil {
		return
	}
	action := back.Value.(string)
	c.lruList.Remove(back)
	delete(c.entries, action)
}

// CleanupExpired removes all expired entries and returns how many were dropped
func (c *StatementCache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	expired := make([]string, 0)
	for action, entry := range c.entries {
		if entry.isExpired(c.ttl) {
			expired = append(expired, action)
		}
	}
	for _, action := range expired {
		c.removeEntry(action)
	}

	return len(expired)
}

// StartCleanupWorker periodically removes expired entries until stopCh is closed
func (c *StatementCache) StartCleanupWorker(interval time.Duration, stopCh <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.CleanupExpired()
		case <-stopCh:
			return
		}
	}
}
