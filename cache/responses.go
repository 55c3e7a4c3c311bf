package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/willibrandon/gonuget-pm/observability"
)

// Default bounds for NewResponseCache.
const (
	DefaultMaxEntries = 2048
	DefaultMaxBytes   = 64 << 20
)

// ResponseCache is an LRU cache of feed response bodies keyed by URL.
// Entries carry the time they were stored; readers decide freshness through
// the maxAge they pass to Get. Safe for concurrent use.
type ResponseCache struct {
	maxEntries int
	maxBytes   int64

	mu      sync.Mutex
	entries map[string]*list.Element
	lru     *list.List
	size    int64
}

type responseEntry struct {
	key      string
	body     []byte
	storedAt time.Time
}

// NewResponseCache creates a cache holding at most maxEntries bodies and
// maxBytes bytes. Non-positive limits fall back to the defaults.
func NewResponseCache(maxEntries int, maxBytes int64) *ResponseCache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &ResponseCache{
		maxEntries: maxEntries,
		maxBytes:   maxBytes,
		entries:    make(map[string]*list.Element),
		lru:        list.New(),
	}
}

// Get returns a copy of the body stored for key when it is younger than
// maxAge. A non-positive maxAge always misses.
func (c *ResponseCache) Get(key string, maxAge time.Duration) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok || maxAge <= 0 {
		observability.CacheMissesTotal.WithLabelValues("http").Inc()
		return nil, false
	}

	entry := elem.Value.(*responseEntry)
	if time.Since(entry.storedAt) > maxAge {
		c.removeElement(elem)
		observability.CacheMissesTotal.WithLabelValues("http").Inc()
		return nil, false
	}

	c.lru.MoveToFront(elem)
	observability.CacheHitsTotal.WithLabelValues("http").Inc()

	body := make([]byte, len(entry.body))
	copy(body, entry.body)
	return body, true
}

// Set stores a copy of body under key. Bodies larger than the byte limit are
// not stored.
func (c *ResponseCache) Set(key string, body []byte) {
	size := int64(len(body))
	if size > c.maxBytes {
		return
	}

	stored := make([]byte, len(body))
	copy(stored, body)

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.removeElement(elem)
	}

	for c.lru.Len() >= c.maxEntries || c.size+size > c.maxBytes {
		oldest := c.lru.Back()
		if oldest == nil {
			break
		}
		c.removeElement(oldest)
	}

	c.entries[key] = c.lru.PushFront(&responseEntry{key: key, body: stored, storedAt: time.Now()})
	c.size += size
}

// Delete removes key.
func (c *ResponseCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[key]; ok {
		c.removeElement(elem)
	}
}

// Clear removes every entry.
func (c *ResponseCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.lru.Init()
	c.size = 0
}

// Len returns the number of stored bodies.
func (c *ResponseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Size returns the stored bytes.
func (c *ResponseCache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

func (c *ResponseCache) removeElement(elem *list.Element) {
	entry := c.lru.Remove(elem).(*responseEntry)
	delete(c.entries, entry.key)
	c.size -= int64(len(entry.body))
}
