package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     string
	expiresAt time.Time // zero means never
}

// MemoryCache is a process-local Cache used in tests and as a fallback
// when no redis address is configured
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]entry
}

func NewMemory() *MemoryCache {
	return &MemoryCache{entries: make(map[string]entry)}
}

func (c *MemoryCache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute ComputeFunc) (string, error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	c.mu.Unlock()

	if ok && (e.expiresAt.IsZero() || e.expiresAt.After(time.Now())) {
		return e.value, nil
	}

	value, err := compute(ctx)
	if err != nil {
		return "", err
	}

	e = entry{value: value}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}

	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()

	return value, nil
}

func (c *MemoryCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range keys {
		delete(c.entries, key)
	}

	return nil
}
