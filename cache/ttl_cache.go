// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// FetchFunc loads the value for key on a cache miss.
type FetchFunc[K comparable, V any] func(ctx context.Context, key K) (V, error)

type ttlEntry[V any] struct {
	value   V
	expires time.Time
}

// TTLCache holds values for a fixed duration. Concurrent misses on the same
// key share a single fetch.
type TTLCache[K comparable, V any] struct {
	ttl time.Duration
	now func() time.Time

	lock    sync.RWMutex
	entries map[K]ttlEntry[V]
	group   singleflight.Group
}

func NewTTLCache[K comparable, V any](ttl time.Duration) *TTLCache[K, V] {
	return &TTLCache[K, V]{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[K]ttlEntry[V]),
	}
}

// Get returns the cached value for key while it is fresh, otherwise it calls
// fetch. With refresh set, the entry is dropped first so no caller observes
// the stale value while the fetch runs. Failed fetches are not cached.
func (c *TTLCache[K, V]) Get(ctx context.Context, key K, fetch FetchFunc[K, V], refresh bool) (V, error) {
	if refresh {
		c.Invalidate(key)
	} else if v, ok := c.lookup(key); ok {
		return v, nil
	}

	res, err, _ := c.group.Do(keyString(key), func() (interface{}, error) {
		v, err := fetch(ctx, key)
		if err != nil {
			return v, err
		}
		c.lock.Lock()
		c.entries[key] = ttlEntry[V]{value: v, expires: c.now().Add(c.ttl)}
		c.lock.Unlock()
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	// res is an untyped nil when V is an interface holding nil.
	v, _ := res.(V)
	return v, nil
}

func (c *TTLCache[K, V]) lookup(key K) (V, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	e, ok := c.entries[key]
	if !ok || !c.now().Before(e.expires) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Invalidate drops key from the cache.
func (c *TTLCache[K, V]) Invalidate(key K) {
	c.lock.Lock()
	delete(c.entries, key)
	c.lock.Unlock()
}

// keyString supports both fmt.Stringer keys and primitive keys.
func keyString[K comparable](key K) string {
	if s, ok := any(key).(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", key)
}
