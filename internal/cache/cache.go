// SPDX-License-Identifier: MIT

// Package cache stores raw GitHub API response bodies with a TTL.
package cache

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Backend names accepted by New.
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendBadger = "badger"
)

// DefaultMaxBytes bounds the memory cache when no limit is given.
const DefaultMaxBytes = 128 << 20

// Cache provides thread-safe caching with expiration support.
type Cache interface {
	// Get retrieves a value from the cache. Returns false if not found or expired.
	Get(ctx context.Context, key string) ([]byte, bool)
	// Set stores a value in the cache with the specified TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string)
	// Clear removes all values from the cache.
	Clear(ctx context.Context)
	// Stats returns cache statistics.
	Stats() Stats
	// Close releases background resources.
	Close() error
}

// Stats holds cache performance metrics.
type Stats struct {
	Hits        int64 // Number of successful Get operations
	Misses      int64 // Number of failed Get operations (not found or expired)
	Sets        int64 // Number of Set operations
	Evictions   int64 // Number of entries removed for expiry or size
	CurrentSize int   // Current number of cached entries
}

type counters struct {
	hits      atomic.Int64
	misses    atomic.Int64
	sets      atomic.Int64
	evictions atomic.Int64
}

func (c *counters) snapshot(size int) Stats {
	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Sets:        c.sets.Load(),
		Evictions:   c.evictions.Load(),
		CurrentSize: size,
	}
}

// entry represents a cached value with expiration time.
type entry struct {
	key        string
	value      []byte
	expiration time.Time
	elem       *list.Element
}

func (e *entry) isExpired(now time.Time) bool {
	return now.After(e.expiration)
}

// memoryCache is an in-memory implementation of Cache. Entries are kept in
// insertion order; when the byte limit is reached the oldest go first.
type memoryCache struct {
	mu       sync.RWMutex
	entries  map[string]*entry
	order    *list.List
	bytes    int64
	maxBytes int64
	stats    counters
	janitor  *janitor
	stopOnce sync.Once
}

// MemoryOption configures NewMemoryCache.
type MemoryOption func(*memoryCache)

// WithMaxBytes bounds the total size of cached values. Values larger than
// the bound are not cached. n <= 0 selects DefaultMaxBytes.
func WithMaxBytes(n int64) MemoryOption {
	return func(c *memoryCache) {
		if n > 0 {
			c.maxBytes = n
		}
	}
}

// NewMemoryCache creates a new in-memory cache with automatic cleanup.
// The cleanupInterval determines how often expired entries are removed.
func NewMemoryCache(cleanupInterval time.Duration, opts ...MemoryOption) Cache {
	c := &memoryCache{
		entries:  make(map[string]*entry),
		order:    list.New(),
		maxBytes: DefaultMaxBytes,
	}
	for _, opt := range opts {
		opt(c)
	}

	if cleanupInterval > 0 {
		c.janitor = &janitor{
			interval: cleanupInterval,
			stop:     make(chan struct{}),
			done:     make(chan struct{}),
		}
		go c.janitor.run(c)
	}

	return c
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.RLock()
	e, found := c.entries[key]
	c.mu.RUnlock()

	if !found || e.isExpired(time.Now()) {
		c.stats.misses.Add(1)
		return nil, false
	}

	c.stats.hits.Add(1)
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, true
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	size := int64(len(value))
	if size > c.maxBytes {
		return
	}
	stored := make([]byte, len(value))
	copy(stored, value)

	c.mu.Lock()
	if old, ok := c.entries[key]; ok {
		c.removeLocked(old)
	}
	for c.bytes+size > c.maxBytes {
		c.removeLocked(c.order.Front().Value.(*entry))
		c.stats.evictions.Add(1)
	}
	e := &entry{key: key, value: stored, expiration: time.Now().Add(ttl)}
	e.elem = c.order.PushBack(e)
	c.entries[key] = e
	c.bytes += size
	c.mu.Unlock()
	c.stats.sets.Add(1)
}

func (c *memoryCache) removeLocked(e *entry) {
	c.order.Remove(e.elem)
	delete(c.entries, e.key)
	c.bytes -= int64(len(e.value))
}

func (c *memoryCache) Delete(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		c.removeLocked(e)
	}
}

func (c *memoryCache) Clear(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
	c.order.Init()
	c.bytes = 0
}

func (c *memoryCache) Stats() Stats {
	c.mu.RLock()
	size := len(c.entries)
	c.mu.RUnlock()
	return c.stats.snapshot(size)
}

// deleteExpired removes all expired entries from the cache.
// Returns the number of entries deleted.
func (c *memoryCache) deleteExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	count := 0
	for _, e := range c.entries {
		if e.isExpired(now) {
			c.removeLocked(e)
			count++
		}
	}

	c.stats.evictions.Add(int64(count))
	return count
}

// Close stops the background cleanup goroutine and waits for it to exit.
func (c *memoryCache) Close() error {
	if c.janitor == nil {
		return nil
	}
	c.stopOnce.Do(func() {
		close(c.janitor.stop)
		<-c.janitor.done
	})
	return nil
}

// janitor performs periodic cleanup of expired entries.
type janitor struct {
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

func (j *janitor) run(c *memoryCache) {
	defer close(j.done)
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.deleteExpired()
		case <-j.stop:
			return
		}
	}
}

// noOpCache is a cache that does nothing (used when caching is disabled).
type noOpCache struct{}

// NewNoOpCache creates a cache that doesn't cache anything.
func NewNoOpCache() Cache {
	return noOpCache{}
}

func (noOpCache) Get(context.Context, string) ([]byte, bool)         { return nil, false }
func (noOpCache) Set(context.Context, string, []byte, time.Duration) {}
func (noOpCache) Delete(context.Context, string)                     {}
func (noOpCache) Clear(context.Context)                              {}
func (noOpCache) Stats() Stats                                       { return Stats{} }
func (noOpCache) Close() error                                       { return nil }

// Config selects and configures a cache backend.
type Config struct {
	Backend         string
	CleanupInterval time.Duration
	// MaxBytes bounds the memory backend.
	MaxBytes int64
	Redis    RedisConfig
	Badger   BadgerConfig
}

// New builds the cache backend named in cfg.
func New(cfg Config) (Cache, error) {
	switch cfg.Backend {
	case "", BackendNone:
		return NewNoOpCache(), nil
	case BackendMemory:
		interval := cfg.CleanupInterval
		if interval <= 0 {
			interval = time.Minute
		}
		return NewMemoryCache(interval, WithMaxBytes(cfg.MaxBytes)), nil
	case BackendRedis:
		rc, err := NewRedisCache(cfg.Redis)
		if err != nil {
			return nil, err
		}
		return rc, nil
	case BackendBadger:
		bc, err := NewBadgerCache(cfg.Badger)
		if err != nil {
			return nil, err
		}
		return bc, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q (supported: none, memory, redis, badger)", cfg.Backend)
	}
}
