package rates

import (
	"sync"
	"time"
)

type rateCache struct {
	mu        sync.RWMutex
	ttl       time.Duration
	snapshot  Snapshot
	expiresAt time.Time
	now       func() time.Time
}

func newRateCache(ttl time.Duration) *rateCache {
	return &rateCache{ttl: ttl, now: time.Now}
}

func (c *rateCache) get() (Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.expiresAt.IsZero() || c.now().After(c.expiresAt) {
		return Snapshot{}, false
	}
	return c.snapshot.clone(), true
}

func (c *rateCache) set(s Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.snapshot = s.clone()
	c.expiresAt = c.now().Add(c.ttl)
}
