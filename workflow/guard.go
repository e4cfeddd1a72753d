// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package workflow

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/luxfi/math/set"
)

// Guard admits one holder at a time. A failed acquire is a rejection, never a
// wait.
type Guard struct {
	held atomic.Bool
}

// TryAcquire returns a release function when the guard was free. The release
// function is idempotent.
func (g *Guard) TryAcquire() (func(), bool) {
	if !g.held.CompareAndSwap(false, true) {
		return nil, false
	}
	var once sync.Once
	return func() { once.Do(func() { g.held.Store(false) }) }, true
}

func (g *Guard) Held() bool {
	return g.held.Load()
}

// KeyedGuard admits one holder per key.
type KeyedGuard struct {
	lock sync.Mutex
	held set.Set[string]
}

func NewKeyedGuard() *KeyedGuard {
	return &KeyedGuard{held: set.NewSet[string](0)}
}

func (g *KeyedGuard) TryAcquire(key string) (func(), bool) {
	g.lock.Lock()
	defer g.lock.Unlock()

	if g.held.Contains(key) {
		return nil, false
	}
	g.held.Add(key)

	var once sync.Once
	return func() {
		once.Do(func() {
			g.lock.Lock()
			g.held.Remove(key)
			g.lock.Unlock()
		})
	}, true
}

func (g *KeyedGuard) Held(key string) bool {
	g.lock.Lock()
	defer g.lock.Unlock()
	return g.held.Contains(key)
}

// Keys returns the held keys in sorted order.
func (g *KeyedGuard) Keys() []string {
	g.lock.Lock()
	keys := g.held.List()
	g.lock.Unlock()

	sort.Strings(keys)
	return keys
}
