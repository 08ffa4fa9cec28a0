package abstract

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

type cachedItem struct {
	value any
	info  Info
}

// Cache memoises evaluated items in an LRU of bounded size. Calls with
// non-empty Args bypass the cache.
type Cache struct {
	data  Sequence
	items *lru.Cache[int, cachedItem]
}

// NewCache wraps data with an LRU holding up to size items.
func NewCache(data Sequence, size int) (*Cache, error) {
	if _, err := requireLen(data, "cache"); err != nil {
		return nil, err
	}
	items, err := lru.New[int, cachedItem](size)
	if err != nil {
		return nil, fmt.Errorf("cache: %w", err)
	}
	return &Cache{data: data, items: items}, nil
}

// Len returns the number of items.
func (c *Cache) Len() int { return c.data.Len() }

// Get returns item index from the cache, evaluating it on a miss.
func (c *Cache) Get(ctx context.Context, index int, args Args) (any, Info, error) {
	i, err := Normalize(index, c.data.Len())
	if err != nil {
		return nil, nil, err
	}
	if !args.isZero() {
		return c.data.Get(ctx, i, args)
	}
	if it, ok := c.items.Get(i); ok {
		return it.value, it.info.Merge(), nil
	}
	v, info, err := c.data.Get(ctx, i, args)
	if err != nil {
		return nil, nil, err
	}
	c.items.Add(i, cachedItem{value: v, info: info})
	return v, info, nil
}

// Cached returns the number of items currently held.
func (c *Cache) Cached() int { return c.items.Len() }

// Purge drops every cached item.
func (c *Cache) Purge() { c.items.Purge() }

// Key projects key of the wrapped data; projections are not cached.
func (c *Cache) Key(key string) (Sequence, error) { return Key(c.data, key) }

func (c *Cache) String() string {
	return fmt.Sprintf("%s\n cache: %d", describe(c.data), c.items.Len())
}
