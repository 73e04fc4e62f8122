package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/lyzr/storefront/common/logger"
)

// Cache interface for key-value storage
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) (int, error)
	Close() error
}

// MemoryCache is an in-memory TTL cache for API responses
type MemoryCache struct {
	data     map[string]*cacheEntry
	bytes    int64
	maxBytes int64 // 0 = unbounded
	hits     uint64
	misses   uint64
	mu       sync.RWMutex
	stop     chan struct{}
	log      *logger.Logger
}

type cacheEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemoryCache creates a new in-memory cache capped at maxBytes
func NewMemoryCache(maxBytes int64, log *logger.Logger) *MemoryCache {
	c := &MemoryCache{
		data:     make(map[string]*cacheEntry),
		maxBytes: maxBytes,
		stop:     make(chan struct{}),
		log:      log,
	}

	// Start cleanup goroutine
	go c.cleanup()

	return c
}

// Get retrieves a value from cache
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.data[key]
	if !exists || time.Now().After(entry.expiresAt) {
		c.misses++
		return nil, false, nil
	}

	c.hits++
	return entry.value, true, nil
}

// Set stores a value in cache with TTL. Values that would push the cache
// over its cap after purging expired entries are not stored.
func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.data == nil {
		return nil
	}

	if old, ok := c.data[key]; ok {
		c.bytes -= int64(len(old.value))
		delete(c.data, key)
	}

	size := int64(len(value))
	if c.maxBytes > 0 && c.bytes+size > c.maxBytes {
		c.purgeExpiredLocked(time.Now())
		if c.bytes+size > c.maxBytes {
			c.log.Debug("cache full, skipping set", "key", key, "size", size)
			return nil
		}
	}

	c.data[key] = &cacheEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	c.bytes += size

	return nil
}

// Delete removes a value from cache
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.data[key]; ok {
		c.bytes -= int64(len(entry.value))
		delete(c.data, key)
	}
	return nil
}

// DeletePrefix removes every key starting with prefix
func (c *MemoryCache) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for key, entry := range c.data {
		if strings.HasPrefix(key, prefix) {
			c.bytes -= int64(len(entry.value))
			delete(c.data, key)
			n++
		}
	}
	return n, nil
}

// Close stops the cleanup loop and drops all entries
func (c *MemoryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.data == nil {
		return nil
	}
	close(c.stop)
	c.data = nil
	c.bytes = 0
	c.log.Info("memory cache closed")
	return nil
}

// cleanup removes expired entries periodically
func (c *MemoryCache) cleanup() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case now := <-ticker.C:
			c.mu.Lock()
			c.purgeExpiredLocked(now)
			c.mu.Unlock()
		}
	}
}

func (c *MemoryCache) purgeExpiredLocked(now time.Time) {
	for key, entry := range c.data {
		if now.After(entry.expiresAt) {
			c.bytes -= int64(len(entry.value))
			delete(c.data, key)
		}
	}
}

// Stats returns cache statistics
func (c *MemoryCache) Stats() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return map[string]interface{}{
		"entries":   len(c.data),
		"bytes":     c.bytes,
		"max_bytes": c.maxBytes,
		"hits":      c.hits,
		"misses":    c.misses,
		"type":      "memory",
	}
}
