// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupMiniRedis creates a test Redis server using miniredis.
func setupMiniRedis(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, newRedisCacheWithClient(client, "", zerolog.Nop())
}

func TestRedisCache_SetGet(t *testing.T) {
	ctx := context.Background()
	mr, c := setupMiniRedis(t)

	c.Set(ctx, "test-key", []byte(`{"full_name":"golang/go"}`), 5*time.Minute)

	val, found := c.Get(ctx, "test-key")
	require.True(t, found)
	assert.JSONEq(t, `{"full_name":"golang/go"}`, string(val))

	assert.True(t, mr.Exists("gla:test-key"), "key must be namespaced")

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Sets)
	assert.Equal(t, int64(1), stats.Hits)
}

func TestRedisCache_GetMissing(t *testing.T) {
	_, c := setupMiniRedis(t)

	val, found := c.Get(context.Background(), "nonexistent")
	assert.False(t, found)
	assert.Nil(t, val)
	assert.Equal(t, int64(1), c.Stats().Misses)
}

func TestRedisCache_TTL(t *testing.T) {
	ctx := context.Background()
	mr, c := setupMiniRedis(t)

	c.Set(ctx, "expiring", []byte("v"), time.Minute)
	mr.FastForward(2 * time.Minute)

	_, found := c.Get(ctx, "expiring")
	assert.False(t, found)
}

func TestRedisCache_ClearKeepsForeignKeys(t *testing.T) {
	ctx := context.Background()
	mr, c := setupMiniRedis(t)

	require.NoError(t, mr.Set("other:key", "keep"))
	c.Set(ctx, "a", []byte("1"), time.Minute)
	c.Set(ctx, "b", []byte("2"), time.Minute)

	c.Clear(ctx)

	assert.False(t, mr.Exists("gla:a"))
	assert.False(t, mr.Exists("gla:b"))
	assert.True(t, mr.Exists("other:key"))
}

func TestRedisCache_Delete(t *testing.T) {
	ctx := context.Background()
	_, c := setupMiniRedis(t)

	c.Set(ctx, "k", []byte("v"), time.Minute)
	c.Delete(ctx, "k")

	_, found := c.Get(ctx, "k")
	assert.False(t, found)
}

func TestNewRedisCache_ConnectsAndFails(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := NewRedisCache(RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	require.NoError(t, c.HealthCheck(context.Background()))
	require.NoError(t, c.Close())

	addr := mr.Addr()
	mr.Close()
	_, err = NewRedisCache(RedisConfig{Addr: addr})
	require.Error(t, err)

	_, err = New(Config{Backend: BackendRedis, Redis: RedisConfig{Addr: addr}})
	require.Error(t, err)
}
