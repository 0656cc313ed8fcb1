package spacetravelling

import (
	"context"
	"sort"
	"sync"
)

// PageCache holds generated pages by key.
type PageCache interface {
	Get(ctx context.Context, key string) (Page, bool, error)
	Put(ctx context.Context, p Page) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}

// MemoryCache is an in-process PageCache. Entries never expire on their own;
// the Revalidator decides when a page is stale.
type MemoryCache struct {
	mu    sync.RWMutex
	pages map[string]Page
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{pages: make(map[string]Page)}
}

func (c *MemoryCache) Get(_ context.Context, key string) (Page, bool, error) {
	c.mu.RLock()
	p, ok := c.pages[key]
	c.mu.RUnlock()
	return p, ok, nil
}

func (c *MemoryCache) Put(_ context.Context, p Page) error {
	c.mu.Lock()
	c.pages[p.Key] = p
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.pages, key)
	c.mu.Unlock()
	return nil
}

// Keys returns the cached keys in sorted order.
func (c *MemoryCache) Keys(_ context.Context) ([]string, error) {
	c.mu.RLock()
	keys := make([]string, 0, len(c.pages))
	for k := range c.pages {
		keys = append(keys, k)
	}
	c.mu.RUnlock()
	sort.Strings(keys)
	return keys, nil
}
