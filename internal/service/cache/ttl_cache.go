package cache

import (
	"context"
	"sync"
	"time"
)

// sweepEvery bounds how many writes may pass between expiry sweeps.
const sweepEvery = 256

type entry struct {
	b   []byte
	exp time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.exp.IsZero() && !now.Before(e.exp)
}

// TTLCache is the in-process BytesCache used when Redis is disabled.
type TTLCache struct {
	mu     sync.RWMutex
	m      map[string]entry
	writes int
	now    func() time.Time
}

func NewTTLCache() *TTLCache {
	return &TTLCache{m: make(map[string]entry), now: time.Now}
}

func (c *TTLCache) GetBytes(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok || e.expired(c.now()) {
		return nil, false, nil
	}
	return e.b, true, nil
}

// SetBytes copies value so callers may reuse their buffer.
func (c *TTLCache) SetBytes(_ context.Context, key string, value []byte, ttl time.Duration) error {
	now := c.now()
	e := entry{b: append([]byte(nil), value...)}
	if ttl > 0 {
		e.exp = now.Add(ttl)
	}
	c.mu.Lock()
	c.m[key] = e
	c.writes++
	if c.writes >= sweepEvery {
		c.writes = 0
		for k, v := range c.m {
			if v.expired(now) {
				delete(c.m, k)
			}
		}
	}
	c.mu.Unlock()
	return nil
}

// Len counts stored entries, expired ones included until the next sweep.
func (c *TTLCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}
