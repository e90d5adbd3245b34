// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMemoryCache_GetSet(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(0)

	c.Set(ctx, "key1", []byte("value1"), 5*time.Minute)

	val, ok := c.Get(ctx, "key1")
	require.True(t, ok, "expected to find key1")
	assert.Equal(t, []byte("value1"), val)

	_, ok = c.Get(ctx, "nonexistent")
	assert.False(t, ok, "expected not to find nonexistent key")
}

func TestMemoryCache_ValueIsCopied(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(0)

	src := []byte("abc")
	c.Set(ctx, "k", src, time.Minute)
	src[0] = 'z'

	got, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "abc", string(got))

	got[1] = 'z'
	again, _ := c.Get(ctx, "k")
	assert.Equal(t, "abc", string(again))
}

func TestMemoryCache_Expiration(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(0)

	c.Set(ctx, "shortlived", []byte("value"), 50*time.Millisecond)

	_, ok := c.Get(ctx, "shortlived")
	require.True(t, ok)

	time.Sleep(100 * time.Millisecond)

	_, ok = c.Get(ctx, "shortlived")
	assert.False(t, ok, "expected key to be expired")
}

func TestMemoryCache_DeleteAndClear(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(0)

	c.Set(ctx, "a", []byte("1"), time.Minute)
	c.Set(ctx, "b", []byte("2"), time.Minute)

	c.Delete(ctx, "a")
	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)

	c.Clear(ctx)
	assert.Equal(t, 0, c.Stats().CurrentSize)
}

func TestMemoryCache_Stats(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(0)

	c.Set(ctx, "k", []byte("v"), time.Minute)
	c.Get(ctx, "k")
	c.Get(ctx, "missing")

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Sets)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.CurrentSize)
}

func TestMemoryCache_JanitorEvictsAndStops(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx := context.Background()
	c := NewMemoryCache(20 * time.Millisecond)

	c.Set(ctx, "gone", []byte("v"), 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return c.Stats().Evictions >= 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, c.Close())
	require.NoError(t, c.Close(), "second close must be a no-op")
}

func TestMemoryCache_ByteBound(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(0, WithMaxBytes(10)).(*memoryCache)

	c.Set(ctx, "a", []byte("aaaa"), time.Minute)
	c.Set(ctx, "b", []byte("bbbb"), time.Minute)
	c.Set(ctx, "c", []byte("cccc"), time.Minute)

	_, ok := c.Get(ctx, "a")
	assert.False(t, ok, "oldest entry must be evicted")
	_, ok = c.Get(ctx, "c")
	assert.True(t, ok)
	assert.Equal(t, int64(8), c.bytes)
	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestMemoryCache_OversizedValueSkipped(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(0, WithMaxBytes(4)).(*memoryCache)

	c.Set(ctx, "small", []byte("ab"), time.Minute)
	c.Set(ctx, "huge", []byte("abcdefgh"), time.Minute)

	_, ok := c.Get(ctx, "huge")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "small")
	assert.True(t, ok, "existing entries survive an oversized set")
	assert.Equal(t, int64(2), c.bytes)
}

func TestMemoryCache_ReplaceUpdatesBytes(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(0, WithMaxBytes(100)).(*memoryCache)

	c.Set(ctx, "k", []byte("0123456789"), time.Minute)
	c.Set(ctx, "k", []byte("01"), time.Minute)
	assert.Equal(t, int64(2), c.bytes)
	assert.Equal(t, 1, c.order.Len())

	c.Delete(ctx, "k")
	assert.Equal(t, int64(0), c.bytes)
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Set(ctx, "shared", []byte{byte(i)}, time.Minute)
				c.Get(ctx, "shared")
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(800), c.Stats().Sets)
}

func TestNoOpCache(t *testing.T) {
	ctx := context.Background()
	c := NewNoOpCache()
	c.Set(ctx, "k", []byte("v"), time.Minute)
	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, Stats{}, c.Stats())
	assert.NoError(t, c.Close())
}

func TestNew_Backends(t *testing.T) {
	c, err := New(Config{Backend: BackendNone})
	require.NoError(t, err)
	assert.IsType(t, noOpCache{}, c)

	c, err = New(Config{Backend: BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &memoryCache{}, c)
	require.NoError(t, c.Close())

	c, err = New(Config{Backend: BackendBadger, Badger: BadgerConfig{Dir: t.TempDir()}})
	require.NoError(t, err)
	assert.IsType(t, &BadgerCache{}, c)
	require.NoError(t, c.Close())

	_, err = New(Config{Backend: BackendBadger})
	require.Error(t, err, "badger needs a directory")

	_, err = New(Config{Backend: "memcached"})
	require.Error(t, err)
}
