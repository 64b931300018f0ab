package embeddings

import (
	"container/list"
	"sync"
)

// DefaultCacheSize is the cache entry cap used when none is configured.
const DefaultCacheSize = 4096

// Cache is a best-effort LRU cache for embedding vectors, keyed by
// (provider identity, text). It is never a correctness dependency: a
// miss just means a provider call.
type Cache struct {
	mu      sync.Mutex
	cap     int
	order   *list.List
	entries map[string]*list.Element
}

type cacheEntry struct {
	key string
	vec []float32
}

// NewCache creates a Cache holding up to capacity entries.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	return &Cache{
		cap:     capacity,
		order:   list.New(),
		entries: make(map[string]*list.Element),
	}
}

func cacheKey(provider, text string) string {
	return provider + "\x00" + text
}

// Get returns the cached vector for (provider, text), if present.
func (c *Cache) Get(provider, text string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[cacheKey(provider, text)]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).vec, true
}

// Put stores a vector for (provider, text), evicting the least recently
// used entry when full.
func (c *Cache) Put(provider, text string, vec []float32) {
	if vec == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(provider, text)
	if el, ok := c.entries[key]; ok {
		el.Value.(*cacheEntry).vec = vec
		c.order.MoveToFront(el)
		return
	}

	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, vec: vec})

	for c.order.Len() > c.cap {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).key)
	}
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
