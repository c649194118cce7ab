// Package cache holds a small in-memory TTL cache used for search
// response memoization.
package cache

import (
	"sync"
	"time"
)

const defaultSweepInterval = 5 * time.Minute

type entry struct {
	value     interface{}
	expiresAt time.Time
}

// Cache is an in-memory TTL cache. Expired entries are invisible to Get
// immediately and removed by a background sweeper.
type Cache struct {
	mu       sync.RWMutex
	entries  map[string]entry
	stopChan chan struct{}
	stopped  bool
}

// New starts a cache whose sweeper runs every sweepInterval. Zero means the
// default of 5 minutes. Call Stop when done.
func New(sweepInterval time.Duration) *Cache {
	if sweepInterval <= 0 {
		sweepInterval = defaultSweepInterval
	}

	c := &Cache{
		entries:  make(map[string]entry),
		stopChan: make(chan struct{}),
	}
	go c.sweep(sweepInterval)
	return c
}

func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

func (c *Cache) Set(key string, value interface{}, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = entry{value: value, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
}

func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len counts stored entries, expired ones included until the next sweep.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stop terminates the sweeper. Safe to call more than once.
func (c *Cache) Stop() {
	c.mu.Lock()
	if !c.stopped {
		c.stopped = true
		close(c.stopChan)
	}
	c.mu.Unlock()
}

func (c *Cache) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

func (c *Cache) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
}
