// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	xglog "github.com/kerryghan-relot/github-language-analysis/internal/log"
	"github.com/rs/zerolog"
)

const (
	defaultBadgerGCInterval = 10 * time.Minute
	badgerGCDiscardRatio    = 0.5
)

// BadgerConfig configures the on-disk cache.
type BadgerConfig struct {
	Dir string // Database directory; ignored when InMemory is set
	// GCInterval is how often the value log is compacted.
	GCInterval time.Duration
	InMemory   bool
}

// BadgerCache is a Cache backed by an embedded Badger database. Entries
// survive restarts and expire through Badger's native TTL.
type BadgerCache struct {
	db     *badger.DB
	logger zerolog.Logger
	stats  counters

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewBadgerCache opens (or creates) the database in cfg.Dir.
func NewBadgerCache(cfg BadgerConfig) (*BadgerCache, error) {
	opts := badger.DefaultOptions(cfg.Dir).WithLogger(nil)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	} else if cfg.Dir == "" {
		return nil, errors.New("badger cache: directory is required")
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger cache: open %s: %w", cfg.Dir, err)
	}

	interval := cfg.GCInterval
	if interval <= 0 {
		interval = defaultBadgerGCInterval
	}
	c := &BadgerCache{
		db:     db,
		logger: xglog.WithComponent("cache"),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go c.runGC(interval, !cfg.InMemory)

	c.logger.Info().
		Str(xglog.FieldPath, cfg.Dir).
		Bool("in_memory", cfg.InMemory).
		Msg("opened badger cache")
	return c, nil
}

// Get retrieves a value. Expired keys are never returned by Badger.
func (c *BadgerCache) Get(_ context.Context, key string) ([]byte, bool) {
	var val []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			c.logger.Warn().Err(err).Str("key", key).Msg("badger get failed")
		}
		c.stats.misses.Add(1)
		return nil, false
	}
	c.stats.hits.Add(1)
	return val, true
}

// Set stores value with ttl. Non-positive TTLs are not cached.
func (c *BadgerCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(key), value).WithTTL(ttl))
	})
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("badger set failed")
		return
	}
	c.stats.sets.Add(1)
}

// Delete removes a value.
func (c *BadgerCache) Delete(_ context.Context, key string) {
	err := c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("badger delete failed")
	}
}

// Clear drops every entry.
func (c *BadgerCache) Clear(context.Context) {
	if err := c.db.DropAll(); err != nil {
		c.logger.Warn().Err(err).Msg("badger clear failed")
	}
}

// Stats returns cache statistics. CurrentSize counts live keys.
func (c *BadgerCache) Stats() Stats {
	size := 0
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			size++
		}
		return nil
	})
	if err != nil {
		c.logger.Warn().Err(err).Msg("badger key count failed")
	}
	return c.stats.snapshot(size)
}

// HealthCheck fails once the database is closed.
func (c *BadgerCache) HealthCheck(context.Context) error {
	if c.db.IsClosed() {
		return errors.New("badger cache is closed")
	}
	return nil
}

// Close stops value log GC and closes the database.
func (c *BadgerCache) Close() error {
	var err error
	c.stopOnce.Do(func() {
		close(c.stop)
		<-c.done
		err = c.db.Close()
	})
	return err
}

func (c *BadgerCache) runGC(interval time.Duration, enabled bool) {
	defer close(c.done)
	if !enabled {
		<-c.stop
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// Each successful run rewrites one log file; repeat until nothing is left.
			for c.db.RunValueLogGC(badgerGCDiscardRatio) == nil {
			}
		case <-c.stop:
			return
		}
	}
}
