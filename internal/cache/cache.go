// Package cache provides a TTL freshness cache for aggregated payloads,
// with optional durable backends. Stale entries are kept and served when
// fresh collection fails.
package cache

import (
	"sync"
	"time"

	"intelwatch/internal/logger"
	"intelwatch/internal/metrics"
)

// Key identifies one cached payload: a product as seen through one
// collection channel.
type Key struct {
	Product string `json:"product"`
	Channel string `json:"channel"`
}

// Entry is a whole cached payload. Put replaces the entire entry; there
// are no partial updates.
type Entry struct {
	Key             Key       `json:"key"`
	Payload         []byte    `json:"payload"`
	ItemCount       int       `json:"item_count"`
	SourcePlatforms []string  `json:"source_platforms"`
	LastUpdated     time.Time `json:"last_updated"`
}

// Store persists entries across process restarts.
type Store interface {
	Load(key Key) (*Entry, error)
	Save(entry *Entry) error
}

// Cache is a TTL cache layered over an optional durable store.
type Cache struct {
	mu      sync.RWMutex
	entries map[Key]*Entry
	store   Store
	ttl     time.Duration
	now     func() time.Time
	log     interface {
		Debug(msg string, args ...any)
		Warn(msg string, args ...any)
	}
}

// New builds a cache with the given TTL. store may be nil for a purely
// in-memory cache.
func New(ttl time.Duration, store Store) *Cache {
	return &Cache{
		entries: make(map[Key]*Entry),
		store:   store,
		ttl:     ttl,
		now:     time.Now,
		log:     logger.With("cache"),
	}
}

// WithClock overrides the cache clock. Used in tests.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

// Get returns the entry for key and whether it is still fresh. A stale
// entry is returned with fresh=false so callers can fall back to it when
// collection fails. Returns (nil, false) when nothing is cached.
func (c *Cache) Get(key Key) (*Entry, bool) {
	c.mu.RLock()
	entry := c.entries[key]
	c.mu.RUnlock()

	if entry == nil && c.store != nil {
		loaded, err := c.store.Load(key)
		if err != nil {
			c.log.Warn("durable cache load failed", "product", key.Product, "channel", key.Channel, "error", err)
		} else if loaded != nil {
			c.mu.Lock()
			c.entries[key] = loaded
			c.mu.Unlock()
			entry = loaded
		}
	}

	if entry == nil {
		metrics.Get().IncCacheMiss()
		return nil, false
	}

	fresh := c.now().Sub(entry.LastUpdated) < c.ttl
	if fresh {
		metrics.Get().IncCacheHit()
	} else {
		metrics.Get().IncCacheMiss()
	}
	return entry, fresh
}

// Put replaces the whole entry for key, stamping it with the current time,
// and writes through to the durable store when one is configured.
func (c *Cache) Put(key Key, payload []byte, itemCount int, platforms []string) *Entry {
	entry := &Entry{
		Key:             key,
		Payload:         payload,
		ItemCount:       itemCount,
		SourcePlatforms: platforms,
		LastUpdated:     c.now().UTC(),
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.Save(entry); err != nil {
			c.log.Warn("durable cache save failed", "product", key.Product, "channel", key.Channel, "error", err)
		}
	}

	c.log.Debug("cache updated", "product", key.Product, "channel", key.Channel, "items", itemCount)
	return entry
}
