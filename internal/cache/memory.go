package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const cleanupInterval = time.Minute

// memoryCache implements Cache using in-process storage
type memoryCache struct {
	mu         sync.RWMutex
	items      map[string]*cacheItem
	maxKeys    int
	defaultTTL time.Duration
	logger     *zap.Logger
	now        func() time.Time
	stopCh     chan struct{}
	stopOnce   sync.Once
}

type cacheItem struct {
	value      []byte
	expiresAt  time.Time
	accessedAt time.Time
}

// NewMemoryCache creates an in-memory cache that evicts the least recently
// used key once maxKeys is reached.
func NewMemoryCache(maxKeys int, defaultTTL time.Duration, logger *zap.Logger) Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxKeys <= 0 {
		maxKeys = 1000
	}

	c := &memoryCache{
		items:      make(map[string]*cacheItem),
		maxKeys:    maxKeys,
		defaultTTL: defaultTTL,
		logger:     logger,
		now:        time.Now,
		stopCh:     make(chan struct{}),
	}

	go c.cleanup()

	return c
}

func (c *memoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[key]
	if !ok {
		return nil, ErrMiss
	}

	now := c.now()
	if now.After(item.expiresAt) {
		delete(c.items, key)
		return nil, ErrMiss
	}

	item.accessedAt = now
	out := make([]byte, len(item.value))
	copy(out, item.value)
	return out, nil
}

func (c *memoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists && len(c.items) >= c.maxKeys {
		c.evictLRU()
	}

	now := c.now()
	stored := make([]byte, len(value))
	copy(stored, value)

	c.items[key] = &cacheItem{
		value:      stored,
		expiresAt:  now.Add(ttl),
		accessedAt: now,
	}

	return nil
}

func (c *memoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
	return nil
}

func (c *memoryCache) Health(ctx context.Context) error {
	return nil
}

func (c *memoryCache) Close() error {
	c.stopOnce.Do(func() { close(c.stopCh) })
	return nil
}

// evictLRU must be called with the write lock held
func (c *memoryCache) evictLRU() {
	var oldestKey string
	var oldest time.Time

	for key, item := range c.items {
		if oldestKey == "" || item.accessedAt.Before(oldest) {
			oldestKey = key
			oldest = item.accessedAt
		}
	}

	if oldestKey != "" {
		delete(c.items, oldestKey)
		c.logger.Debug("Evicted cache entry", zap.String("key", oldestKey))
	}
}

func (c *memoryCache) cleanup() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stopCh:
			return
		}
	}
}

func (c *memoryCache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, item := range c.items {
		if now.After(item.expiresAt) {
			delete(c.items, key)
			removed++
		}
	}

	if removed > 0 {
		c.logger.Debug("Expired cache entries removed", zap.Int("count", removed))
	}
}
