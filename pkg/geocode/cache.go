package geocode

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"
)

// cacheKey returns SHA-256 hex of the normalized address.
func cacheKey(address string) string {
	h := sha256.Sum256([]byte(Normalize(address)))
	return fmt.Sprintf("%x", h)
}

type cacheEntry struct {
	loc     *Location
	expires time.Time
}

// Cache holds provider results for a fixed TTL. It is unbounded; expired entries are
// dropped on read or by Purge.
type Cache struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
}

// NewCache returns a cache whose entries live for ttl.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{ttl: ttl, now: time.Now, entries: make(map[string]cacheEntry)}
}

// Get returns the stored pointer for address if it has not expired.
func (c *Cache) Get(address string) (*Location, bool) {
	key := cacheKey(address)
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return e.loc, true
}

// Set stores loc for address.
func (c *Cache) Set(address string, loc *Location) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(address)] = cacheEntry{loc: loc, expires: c.now().Add(c.ttl)}
}

// Purge removes expired entries and returns how many were removed.
func (c *Cache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Len returns the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
