package cache

import (
	"sync"
)

// Cache is a small typed map guarded by a RWMutex. Used for process-wide
// registries that must support atomic reserve-or-join semantics.
type Cache[T any] struct {
	entries map[string]T
	mutex   sync.RWMutex
}

func New[T any]() *Cache[T] {
	return &Cache[T]{
		entries: make(map[string]T),
	}
}

func (c *Cache[T]) Get(key string) (T, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	value, ok := c.entries[key]
	return value, ok
}

// GetOrStore returns the entry under key, storing value first when the key
// was empty. The second return is true when value was stored, so exactly one
// caller per key observes it and owns the associated work.
func (c *Cache[T]) GetOrStore(key string, value T) (T, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if existing, ok := c.entries[key]; ok {
		return existing, false
	}
	c.entries[key] = value
	return value, true
}

func (c *Cache[T]) Remove(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	delete(c.entries, key)
}

func (c *Cache[T]) Keys() []string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	return keys
}
