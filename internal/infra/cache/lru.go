// Package cache holds client-side state scoped to the signed-in identity.
package cache

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSize is used when a non-positive size is configured.
const DefaultSize = 1024

// IdentityCache is a bounded LRU of operation results. It is purged whenever
// the session ends so one identity never sees another's data.
//
// Each Reset starts a new generation. A result fetched under an older
// generation belongs to the previous identity and is refused by
// AddIfGeneration.
type IdentityCache struct {
	mu      sync.Mutex
	gen     uint64
	entries *lru.Cache[string, any]
}

// NewIdentityCache creates a cache holding at most size entries.
func NewIdentityCache(size int) (*IdentityCache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	entries, err := lru.New[string, any](size)
	if err != nil {
		return nil, err
	}
	return &IdentityCache{entries: entries}, nil
}

func (c *IdentityCache) Get(key string) (any, bool) {
	return c.entries.Get(key)
}

func (c *IdentityCache) Add(key string, value any) {
	c.entries.Add(key, value)
}

// Generation returns the current generation.
func (c *IdentityCache) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// AddIfGeneration stores value only if no Reset happened since gen was read.
func (c *IdentityCache) AddIfGeneration(gen uint64, key string, value any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return false
	}
	c.entries.Add(key, value)
	return true
}

func (c *IdentityCache) Len() int {
	return c.entries.Len()
}

// Reset drops every entry and starts a new generation.
func (c *IdentityCache) Reset(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.entries.Purge()
	return nil
}
