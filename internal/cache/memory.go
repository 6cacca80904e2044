package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"qrgen/internal/models"
)

const (
	DefaultTTL             = 5 * time.Minute
	DefaultCapacity        = 1000
	defaultCleanupInterval = time.Minute
)

type memoryEntry struct {
	value      []byte
	insertedAt time.Time
}

type MemoryConfig struct {
	// Capacity is the maximum entry count. Zero disables caching.
	Capacity int
	// TTL is measured from insertion; reads do not extend it.
	TTL time.Duration
	// CleanupInterval is how often expired entries are purged.
	CleanupInterval time.Duration
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// MemoryCache is a bounded LRU with TTL-since-write expiry.
type MemoryCache struct {
	mu  sync.Mutex
	lru *simplelru.LRU[models.Fingerprint, memoryEntry] // nil when capacity is zero

	ttl             time.Duration
	now             func() time.Time
	stopCleanup     chan struct{}
	cleanupOnce     sync.Once
	cleanupInterval time.Duration
}

// NewMemoryCache creates an in-process cache and starts its cleanup goroutine.
// Call Close to stop it.
func NewMemoryCache(cfg MemoryConfig) (*MemoryCache, error) {
	if cfg.Capacity < 0 {
		return nil, errors.New("cache: capacity must not be negative")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = defaultCleanupInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	c := &MemoryCache{
		ttl:             cfg.TTL,
		now:             cfg.Now,
		stopCleanup:     make(chan struct{}),
		cleanupInterval: cfg.CleanupInterval,
	}

	if cfg.Capacity > 0 {
		lru, err := simplelru.NewLRU[models.Fingerprint, memoryEntry](cfg.Capacity, nil)
		if err != nil {
			return nil, err
		}
		c.lru = lru
	}

	go c.cleanupExpired()

	return c, nil
}

// Get returns a copy of the cached value. Entries at or past their TTL are a miss even if
// the cleanup goroutine has not removed them yet.
func (c *MemoryCache) Get(_ context.Context, fp models.Fingerprint) ([]byte, bool, error) {
	if c.lru == nil {
		return nil, false, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.lru.Get(fp)
	if !ok {
		return nil, false, nil
	}
	if c.expired(entry) {
		c.lru.Remove(fp)
		return nil, false, nil
	}
	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, true, nil
}

// Set inserts or overwrites fp, evicting the least recently used entry when full.
func (c *MemoryCache) Set(_ context.Context, fp models.Fingerprint, value []byte) error {
	if c.lru == nil {
		return nil
	}

	// Copy to decouple from caller's buffer
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	c.mu.Lock()
	c.lru.Add(fp, memoryEntry{value: valueCopy, insertedAt: c.now()})
	c.mu.Unlock()

	return nil
}

func (c *MemoryCache) expired(e memoryEntry) bool {
	return c.now().Sub(e.insertedAt) >= c.ttl
}

// RemoveExpired drops every entry past its TTL and reports how many went.
func (c *MemoryCache) RemoveExpired() int {
	if c.lru == nil {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for _, k := range c.lru.Keys() {
		if e, ok := c.lru.Peek(k); ok && c.expired(e) {
			c.lru.Remove(k)
			removed++
		}
	}
	return removed
}

func (c *MemoryCache) cleanupExpired() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.RemoveExpired()
		case <-c.stopCleanup:
			return
		}
	}
}

// Close stops the cleanup goroutine. Call this on shutdown or in tests.
func (c *MemoryCache) Close() error {
	c.cleanupOnce.Do(func() {
		close(c.stopCleanup)
	})
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	if c.lru == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Clear removes all items from cache.
func (c *MemoryCache) Clear() {
	if c.lru == nil {
		return
	}
	c.mu.Lock()
	c.lru.Purge()
	c.mu.Unlock()
}
