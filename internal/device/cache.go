package device

import (
	"context"
	"fmt"
	"sync"
)

// Entry is a cached projection of an identity: just enough to validate and
// route an incoming measurement without touching the directory.
type Entry struct {
	ID    int64
	Class Class
}

// Cache is a concurrent mapping from device full name to its assigned
// identity. It is a cache, not the source of truth: on process restart it
// starts empty and is warmed from the directory (see WarmUp), then kept
// current by the registration handler.
//
// Readers never see a partially written entry; insert replaces the value
// for a key atomically under the write lock. There is no eviction, the
// lifetime is the lifetime of the process.
//
// All methods are safe for concurrent use from multiple goroutines.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewCache creates an empty identity cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]Entry)}
}

// Lookup returns the cached entry for a full name.
func (c *Cache) Lookup(fullName string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[fullName]
	return entry, ok
}

// Insert records the identity assigned to a full name. It is idempotent:
// only the registration handler writes, under the directory's uniqueness
// guarantee, so two inserts for the same key always carry the same id.
func (c *Cache) Insert(fullName string, id int64, class Class) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[fullName] = Entry{ID: id, Class: class}
}

// Len returns the number of cached identities.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// WarmUp eagerly populates the cache from the directory. Called once at
// startup so devices that registered in a previous run are recognised
// before they re-register.
func (c *Cache) WarmUp(ctx context.Context, repo Repository) error {
	identities, err := repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading directory: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range identities {
		ident := &identities[i]
		c.entries[ident.FullName] = Entry{ID: ident.ID, Class: ident.Class}
	}
	return nil
}
