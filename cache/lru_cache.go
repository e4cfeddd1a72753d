// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// LRUCache is a bounded cache for immutable data. Entries never expire; they
// are only evicted by size.
type LRUCache[K comparable, V any] struct {
	cache *lru.Cache[K, V]
	group singleflight.Group
}

func NewLRUCache[K comparable, V any](size int) (*LRUCache[K, V], error) {
	c, err := lru.New[K, V](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create lru cache: %w", err)
	}
	return &LRUCache[K, V]{cache: c}, nil
}

// Get returns the cached value for key or fetches and stores it.
func (c *LRUCache[K, V]) Get(ctx context.Context, key K, fetch FetchFunc[K, V]) (V, error) {
	if v, ok := c.cache.Get(key); ok {
		return v, nil
	}

	res, err, _ := c.group.Do(keyString(key), func() (interface{}, error) {
		v, err := fetch(ctx, key)
		if err != nil {
			return v, err
		}
		c.cache.Add(key, v)
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

// Peek returns the cached value without fetching or touching recency.
func (c *LRUCache[K, V]) Peek(key K) (V, bool) {
	return c.cache.Peek(key)
}

func (c *LRUCache[K, V]) Len() int {
	return c.cache.Len()
}
