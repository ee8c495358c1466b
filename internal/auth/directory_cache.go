package auth

import (
	"context"
	"sync"
	"time"
)

// CachingDirectory remembers positive Exists answers for a TTL so that every
// authenticated request does not cost a store round trip. Misses and errors
// are never cached.
type CachingDirectory struct {
	base UserDirectory
	ttl  time.Duration
	now  func() time.Time

	mu    sync.RWMutex
	items map[string]time.Time
}

// NewCachingDirectory wraps base with a TTL cache.
func NewCachingDirectory(base UserDirectory, ttl time.Duration) *CachingDirectory {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CachingDirectory{
		base:  base,
		ttl:   ttl,
		now:   time.Now,
		items: make(map[string]time.Time),
	}
}

// Exists answers from the cache when a fresh positive entry is present.
func (c *CachingDirectory) Exists(ctx context.Context, id string) (bool, error) {
	now := c.now()

	c.mu.RLock()
	expires, ok := c.items[id]
	c.mu.RUnlock()
	if ok && now.Before(expires) {
		return true, nil
	}

	exists, err := c.base.Exists(ctx, id)
	if err != nil || !exists {
		if ok {
			c.mu.Lock()
			delete(c.items, id)
			c.mu.Unlock()
		}
		return exists, err
	}

	c.mu.Lock()
	c.items[id] = now.Add(c.ttl)
	c.mu.Unlock()

	return true, nil
}
