// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBadger(t *testing.T) *BadgerCache {
	t.Helper()
	c, err := NewBadgerCache(BadgerConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestBadgerCache_SetGet(t *testing.T) {
	ctx := context.Background()
	c := newTestBadger(t)

	c.Set(ctx, "repo", []byte(`{"full_name":"golang/go"}`), time.Minute)

	val, found := c.Get(ctx, "repo")
	require.True(t, found)
	assert.JSONEq(t, `{"full_name":"golang/go"}`, string(val))

	_, found = c.Get(ctx, "missing")
	assert.False(t, found)

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Sets)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.CurrentSize)
}

func TestBadgerCache_TTL(t *testing.T) {
	ctx := context.Background()
	c := newTestBadger(t)

	c.Set(ctx, "expiring", []byte("v"), time.Second)
	c.Set(ctx, "never", []byte("v"), 0)

	_, found := c.Get(ctx, "never")
	assert.False(t, found, "non-positive TTL must not be stored")

	require.Eventually(t, func() bool {
		_, ok := c.Get(ctx, "expiring")
		return !ok
	}, 5*time.Second, 100*time.Millisecond)
}

func TestBadgerCache_DeleteAndClear(t *testing.T) {
	ctx := context.Background()
	c := newTestBadger(t)

	c.Set(ctx, "a", []byte("1"), time.Minute)
	c.Set(ctx, "b", []byte("2"), time.Minute)

	c.Delete(ctx, "a")
	_, found := c.Get(ctx, "a")
	assert.False(t, found)

	c.Clear(ctx)
	assert.Equal(t, 0, c.Stats().CurrentSize)
}

func TestBadgerCache_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	c, err := NewBadgerCache(BadgerConfig{Dir: dir, GCInterval: time.Hour})
	require.NoError(t, err)
	c.Set(ctx, "k", []byte("v"), time.Hour)
	require.NoError(t, c.HealthCheck(ctx))
	require.NoError(t, c.Close())
	require.NoError(t, c.Close(), "second close must be a no-op")
	require.Error(t, c.HealthCheck(ctx))

	c, err = NewBadgerCache(BadgerConfig{Dir: dir})
	require.NoError(t, err)
	val, found := c.Get(ctx, "k")
	require.True(t, found)
	assert.Equal(t, "v", string(val))
	require.NoError(t, c.Close())
}

func TestNewBadgerCache_RequiresDir(t *testing.T) {
	_, err := NewBadgerCache(BadgerConfig{})
	require.Error(t, err)
}
