package floodapi

import (
	"context"
	"sync"

	"github.com/couchcryptid/flood-monitor-service/internal/domain"
	"github.com/couchcryptid/flood-monitor-service/internal/observability"
)

// PolygonFetcher downloads a flood area boundary by URL.
type PolygonFetcher interface {
	FetchPolygon(ctx context.Context, polygonURL string) (domain.MultiPolygon, error)
}

// CachedPolygons wraps a PolygonFetcher with an in-memory LRU cache keyed by
// polygon URL.
type CachedPolygons struct {
	inner   PolygonFetcher
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedPolygons creates a cache decorator around a polygon fetcher.
func NewCachedPolygons(inner PolygonFetcher, maxEntries int, metrics *observability.Metrics) *CachedPolygons {
	return &CachedPolygons{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedPolygons) FetchPolygon(ctx context.Context, polygonURL string) (domain.MultiPolygon, error) {
	if mp, ok := c.cache.get(polygonURL); ok {
		c.metrics.PolygonCache.WithLabelValues("hit").Inc()
		return mp, nil
	}
	c.metrics.PolygonCache.WithLabelValues("miss").Inc()

	mp, err := c.inner.FetchPolygon(ctx, polygonURL)
	if err != nil {
		return nil, err
	}
	// Empty boundaries are not cached so they are retried next refresh.
	if len(mp) > 0 {
		c.cache.put(polygonURL, mp)
	}
	return mp, nil
}

// Len reports the number of cached polygons.
func (c *CachedPolygons) Len() int {
	return c.cache.len()
}

// lruCache is a simple thread-safe LRU cache for flood area polygons.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value domain.MultiPolygon
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (domain.MultiPolygon, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value domain.MultiPolygon) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.pushFront(e)

	for len(c.entries) > c.maxEntries && c.tail != nil {
		delete(c.entries, c.tail.key)
		c.unlink(c.tail)
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.unlink(e)
	c.pushFront(e)
}

func (c *lruCache) pushFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}
