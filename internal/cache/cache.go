// Package cache holds fetched datasets in memory for their TTL so repeated
// lookups for the same location skip the multi-minute acquisition.
package cache

import (
	"sync"
	"time"

	"github.com/couchcryptid/crime-data-service/internal/domain"
	"github.com/jonboulle/clockwork"
)

// Key identifies one cache slot. The two record kinds are fetched from
// different endpoints at different times, so each gets its own entry per
// location.
type Key struct {
	Location string
	Kind     domain.RecordKind
}

// NewKey builds a Key from an unnormalized postcode.
func NewKey(postcode string, kind domain.RecordKind) Key {
	return Key{Location: domain.NormalizeLocationKey(postcode), Kind: kind}
}

type entry struct {
	dataset  *domain.Dataset
	storedAt time.Time
}

// Cache is a process-wide TTL map from location key to dataset. Entries
// expire lazily on access; there is no background sweeper. All mutation is
// serialized under one mutex, so concurrent get/put calls for the same key
// observe a total order, and readers always see a complete dataset because
// datasets are immutable once built.
type Cache struct {
	ttl   time.Duration
	clock clockwork.Clock

	mu      sync.Mutex
	entries map[Key]*entry
}

// New creates a Cache with the given TTL.
func New(ttl time.Duration, clock clockwork.Clock) *Cache {
	return &Cache{
		ttl:     ttl,
		clock:   clock,
		entries: make(map[Key]*entry),
	}
}

// Get returns the cached dataset for key, or (nil, false) if the key is
// absent or its entry has outlived the TTL. An expired entry is evicted on
// the spot.
func (c *Cache) Get(key Key) (*domain.Dataset, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.clock.Since(e.storedAt) > c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return e.dataset, true
}

// Put stores the dataset for key, replacing any existing entry wholesale
// and resetting its insertion timestamp.
func (c *Cache) Put(key Key, dataset *domain.Dataset) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &entry{dataset: dataset, storedAt: c.clock.Now()}
}

// Invalidate removes the entry for key, if any.
func (c *Cache) Invalidate(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

// Len reports the number of live entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}
