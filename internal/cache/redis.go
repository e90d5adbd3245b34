// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	xglog "github.com/kerryghan-relot/github-language-analysis/internal/log"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const defaultKeyPrefix = "gla:"

// RedisCache is a Redis-backed implementation of Cache.
type RedisCache struct {
	client *redis.Client
	prefix string
	logger zerolog.Logger
	stats  counters
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr      string // Redis server address (host:port)
	Password  string // Redis password (optional)
	DB        int    // Redis database number
	KeyPrefix string // Namespace for all keys (defaults to "gla:")
}

// NewRedisCache connects to Redis and verifies the connection with a PING.
func NewRedisCache(config RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger := xglog.WithComponent("cache")
	logger.Info().
		Str("addr", config.Addr).
		Int("db", config.DB).
		Msg("connected to Redis cache")

	return newRedisCacheWithClient(client, config.KeyPrefix, logger), nil
}

func newRedisCacheWithClient(client *redis.Client, prefix string, logger zerolog.Logger) *RedisCache {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisCache{client: client, prefix: prefix, logger: logger}
}

func (c *RedisCache) key(k string) string { return c.prefix + k }

// Get retrieves a value from Redis cache.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	val, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.stats.misses.Add(1)
		return nil, false
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("redis get failed")
		c.stats.misses.Add(1)
		return nil, false
	}

	c.stats.hits.Add(1)
	return val, true
}

// Set stores a value in Redis cache with TTL.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.client.Set(ctx, c.key(key), value, ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("redis set failed")
		return
	}

	c.stats.sets.Add(1)
}

// Delete removes a value from Redis cache.
func (c *RedisCache) Delete(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("redis delete failed")
	}
}

// Clear removes every key under the cache prefix. Other keys of the database are left alone.
func (c *RedisCache) Clear(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var keys []string
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.logger.Warn().Err(err).Msg("redis scan failed")
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn().Err(err).Int("keys", len(keys)).Msg("redis clear failed")
	}
}

// Stats returns cache statistics. CurrentSize is the size of the whole Redis DB.
func (c *RedisCache) Stats() Stats {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	size, err := c.client.DBSize(ctx).Result()
	if err != nil {
		c.logger.Warn().Err(err).Msg("redis dbsize failed")
		size = 0
	}

	return c.stats.snapshot(int(size))
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// HealthCheck checks if Redis is available.
func (c *RedisCache) HealthCheck(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
