// Package cache provides the time-bounded recipe document cache backing
// the loader and repository.
package cache

import (
	"sort"
	"sync"
	"time"

	"pantrybook/internal/models"
)

// DefaultTTL is the freshness window applied when no TTL is configured.
const DefaultTTL = 5 * time.Minute

// Entry is a cached recipe document with its write timestamp. Entries are
// owned by the cache; Put replaces them wholesale.
type Entry struct {
	Key       string
	Data      *models.RecipeDocument
	Timestamp time.Time
}

// EntryStatus describes one entry in a Status snapshot.
type EntryStatus struct {
	Key              string  `json:"key"`
	AgeSeconds       float64 `json:"ageSeconds"`
	RemainingSeconds float64 `json:"remainingSeconds"`
	Expired          bool    `json:"expired"`
}

// Status is a point-in-time snapshot of cache health.
type Status struct {
	TotalEntries   int           `json:"totalEntries"`
	ValidEntries   int           `json:"validEntries"`
	ExpiredEntries int           `json:"expiredEntries"`
	Entries        []EntryStatus `json:"entries"`
}

// Cache is a per-key TTL cache. Reads never mutate state: a stale entry is
// reported as a miss by Get but stays in the map until SweepExpired or
// Invalidate removes it.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	ttl     time.Duration
	now     func() time.Time
}

// New creates a cache with the given TTL; zero or negative means DefaultTTL.
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		entries: make(map[string]*Entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// SetClock replaces the time source, for tests.
func (c *Cache) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// TTL returns the configured freshness window.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Get returns the entry for key if it exists and is still fresh. A stale
// entry is a miss but is left in place.
func (c *Cache) Get(key string) (*Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	if !ok || c.expired(entry) {
		return nil, false
	}
	return entry, true
}

// GetAny returns the entry for key regardless of freshness.
func (c *Cache) GetAny(key string) (*Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	return entry, ok
}

// Put inserts or replaces the entry for key with the current timestamp.
func (c *Cache) Put(key string, data *models.RecipeDocument) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = &Entry{Key: key, Data: data, Timestamp: c.now()}
}

// Invalidate removes the named entries, or every entry when called with
// no arguments. It returns the keys actually removed.
func (c *Cache) Invalidate(keys ...string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := []string{}
	if len(keys) == 0 {
		for key := range c.entries {
			removed = append(removed, key)
		}
		c.entries = make(map[string]*Entry)
		return removed
	}
	for _, key := range keys {
		if _, ok := c.entries[key]; ok {
			delete(c.entries, key)
			removed = append(removed, key)
		}
	}
	return removed
}

// SweepExpired removes entries older than the TTL and returns their keys.
func (c *Cache) SweepExpired() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := []string{}
	for key, entry := range c.entries {
		if c.expired(entry) {
			delete(c.entries, key)
			removed = append(removed, key)
		}
	}
	return removed
}

// Len returns the number of entries, fresh or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Status returns a snapshot of all entries sorted by ascending age.
func (c *Cache) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	status := Status{Entries: []EntryStatus{}}
	for key, entry := range c.entries {
		age := now.Sub(entry.Timestamp)
		remaining := c.ttl - age
		if remaining < 0 {
			remaining = 0
		}
		expired := age > c.ttl
		status.TotalEntries++
		if expired {
			status.ExpiredEntries++
		} else {
			status.ValidEntries++
		}
		status.Entries = append(status.Entries, EntryStatus{
			Key:              key,
			AgeSeconds:       age.Seconds(),
			RemainingSeconds: remaining.Seconds(),
			Expired:          expired,
		})
	}

	sort.Slice(status.Entries, func(i, j int) bool {
		return status.Entries[i].AgeSeconds < status.Entries[j].AgeSeconds
	})
	return status
}

func (c *Cache) expired(entry *Entry) bool {
	return c.now().Sub(entry.Timestamp) > c.ttl
}
