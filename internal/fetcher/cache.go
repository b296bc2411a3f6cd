package fetcher

import "sync"

// Cache holds one entry per URL for the lifetime of a run.
type Cache struct {
	data sync.Map
}

func NewCache() *Cache {
	return &Cache{}
}

func (c *Cache) Get(rawURL string) (cacheEntry, bool) {
	v, ok := c.data.Load(rawURL)
	if !ok {
		return cacheEntry{}, false
	}
	return v.(cacheEntry), true
}

func (c *Cache) Set(rawURL string, e cacheEntry) {
	c.data.Store(rawURL, e)
}

// Len reports the number of cached URLs.
func (c *Cache) Len() int {
	n := 0
	c.data.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
