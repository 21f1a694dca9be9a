// Package dedup provides a bounded, TTL-based set of recently processed
// event identifiers. The upstream platform redelivers events until it sees a
// fast acknowledgment, so the same message id can arrive more than once
// within a short window.
package dedup

import (
	"sync"
	"time"
)

// DefaultWindow is how long an event id is remembered. After the window the
// id may be treated as new again; the guarantee is at-most-once within the
// window, not exactly-once forever.
const DefaultWindow = 5 * time.Minute

// Cache is safe for concurrent use by in-flight event tasks. State is held
// in memory only and lost on restart.
type Cache struct {
	mu     sync.Mutex
	window time.Duration
	seen   map[string]time.Time
	now    func() time.Time
}

func NewCache(window time.Duration) *Cache {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Cache{
		window: window,
		seen:   make(map[string]time.Time),
		now:    time.Now,
	}
}

// SeenOrRecord atomically purges expired entries, reports whether id is
// already present, and records it if absent.
func (c *Cache) SeenOrRecord(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, at := range c.seen {
		if now.Sub(at) > c.window {
			delete(c.seen, k)
		}
	}

	if _, ok := c.seen[id]; ok {
		return true
	}
	c.seen[id] = now
	return false
}

// Len reports the current number of remembered ids.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}
