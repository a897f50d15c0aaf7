package gw2

import (
	"sync"
	"time"

	"github.com/itbasis/go-clock"
)

// ttlCache holds raw response bodies for a fixed TTL. The upstream API is
// rate limited and most dashboard views refetch the same endpoints.
type ttlCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	clock   clock.Clock
	entries map[string]cacheEntry
}

type cacheEntry struct {
	body    []byte
	expires time.Time
}

func newTTLCache(ttl time.Duration, clk clock.Clock) *ttlCache {
	return &ttlCache{
		ttl:     ttl,
		clock:   clk,
		entries: make(map[string]cacheEntry),
	}
}

func (c *ttlCache) get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.clock.Now().After(e.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return e.body, true
}

func (c *ttlCache) set(key string, body []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{body: body, expires: c.clock.Now().Add(c.ttl)}
}
