// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLRUCache(t *testing.T) {
	tests := []struct {
		name          string
		key           string
		expectedValue int
		expectedCount int
	}{
		{
			name:          "empty cache fetches",
			key:           "a",
			expectedValue: 1,
			expectedCount: 1,
		},
		{
			name:          "cached value is served",
			key:           "a",
			expectedValue: 1,
			expectedCount: 1,
		},
		{
			name:          "second key fetches",
			key:           "b",
			expectedValue: 2,
			expectedCount: 2,
		},
		{
			name:          "third key evicts least recent",
			key:           "c",
			expectedValue: 3,
			expectedCount: 3,
		},
		{
			name:          "evicted key fetches again",
			key:           "a",
			expectedValue: 1,
			expectedCount: 4,
		},
	}

	c, err := NewLRUCache[string, int](2)
	require.NoError(t, err)

	values := map[string]int{"a": 1, "b": 2, "c": 3}
	fetchCount := 0
	fetch := func(_ context.Context, key string) (int, error) {
		fetchCount++
		return values[key], nil
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)

			val, err := c.Get(context.Background(), tt.key, fetch)
			require.NoError(err)
			require.Equal(tt.expectedValue, val)
			require.Equal(tt.expectedCount, fetchCount)
		})
	}
	require.Equal(t, 2, c.Len())
}

func TestLRUCacheFetchError(t *testing.T) {
	require := require.New(t)

	c, err := NewLRUCache[string, int](4)
	require.NoError(err)

	errFetch := errors.New("boom")
	_, err = c.Get(context.Background(), "a", func(context.Context, string) (int, error) {
		return 0, errFetch
	})
	require.ErrorIs(err, errFetch)

	_, ok := c.Peek("a")
	require.False(ok)
}

func TestNewLRUCacheInvalidSize(t *testing.T) {
	_, err := NewLRUCache[string, int](0)
	require.Error(t, err)
}
