package cache

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mikey/llm-phishing-detector/internal/core"
	"go.uber.org/zap"
)

// MemoryCache is an in-memory, capacity-bounded implementation of the
// ResultCache interface. Eviction is least-recently-used; entries may also
// carry a TTL that invalidates them independently of recency.
type MemoryCache struct {
	mu       sync.Mutex
	entries  map[string]*list.Element
	order    *list.List // front is most recently used
	capacity int
	ttl      time.Duration // zero disables expiry

	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
	stopOnce    sync.Once
}

// NewMemoryCache creates a new in-memory LRU cache. A cleanupFreq of zero
// disables the background expiry sweep.
func NewMemoryCache(capacity int, ttl time.Duration, cleanupFreq time.Duration, logger *zap.Logger) (*MemoryCache, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: cache capacity must be positive", core.ErrConfiguration)
	}

	cache := &MemoryCache{
		entries:     make(map[string]*list.Element, capacity),
		order:       list.New(),
		capacity:    capacity,
		ttl:         ttl,
		logger:      logger,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}

	if cleanupFreq > 0 && ttl > 0 {
		go cache.startCleanupTask()
	}

	return cache, nil
}

// Get retrieves a cached result and marks the entry as recently used
func (c *MemoryCache) Get(ctx context.Context, fingerprint string) (*core.AnalysisResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, ok := c.entries[fingerprint]
	if !ok {
		return nil, core.ErrCacheMiss
	}

	entry := element.Value.(*core.CacheEntry)
	if !entry.ExpiresAt.IsZero() && time.Now().After(entry.ExpiresAt) {
		c.removeElement(element)
		return nil, core.ErrCacheMiss
	}

	c.order.MoveToFront(element)
	return entry.Result, nil
}

// Set stores a result, evicting the least recently used entry when the
// cache is at capacity
func (c *MemoryCache) Set(ctx context.Context, fingerprint string, result *core.AnalysisResult) error {
	now := time.Now()
	entry := &core.CacheEntry{
		Fingerprint: fingerprint,
		Result:      result,
		CreatedAt:   now,
	}
	if c.ttl > 0 {
		entry.ExpiresAt = now.Add(c.ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if element, ok := c.entries[fingerprint]; ok {
		element.Value = entry
		c.order.MoveToFront(element)
		return nil
	}

	c.entries[fingerprint] = c.order.PushFront(entry)

	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.removeElement(oldest)
		c.logger.Debug("Evicted least recently used cache entry",
			zap.String("fingerprint", oldest.Value.(*core.CacheEntry).Fingerprint))
	}

	return nil
}

// Delete removes a cache entry
func (c *MemoryCache) Delete(ctx context.Context, fingerprint string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if element, ok := c.entries[fingerprint]; ok {
		c.removeElement(element)
	}
	return nil
}

// Cleanup removes expired entries
func (c *MemoryCache) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	expired := 0

	for element := c.order.Back(); element != nil; {
		prev := element.Prev()
		entry := element.Value.(*core.CacheEntry)
		if !entry.ExpiresAt.IsZero() && now.After(entry.ExpiresAt) {
			c.removeElement(element)
			expired++
		}
		element = prev
	}

	c.logger.Debug("Cleaned up expired cache entries", zap.Int("expired_count", expired))
	return nil
}

// Len returns the number of live entries
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// removeElement drops an entry from both index and recency list. Caller
// must hold the lock.
func (c *MemoryCache) removeElement(element *list.Element) {
	entry := element.Value.(*core.CacheEntry)
	delete(c.entries, entry.Fingerprint)
	c.order.Remove(element)
}

// startCleanupTask starts a background task to clean up expired entries
func (c *MemoryCache) startCleanupTask() {
	ticker := time.NewTicker(c.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Cleanup(context.Background()); err != nil {
				c.logger.Error("Failed to clean up cache", zap.Error(err))
			}
		case <-c.stopCh:
			return
		}
	}
}

// Stop stops the background cleanup task
func (c *MemoryCache) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}
