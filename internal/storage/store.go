// SPDX-License-Identifier: MIT

// Package storage selects the dataset persistence backend.
package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kerryghan-relot/github-language-analysis/internal/analytics"
	"github.com/kerryghan-relot/github-language-analysis/internal/metrics"
	"github.com/kerryghan-relot/github-language-analysis/internal/storage/csvstore"
	"github.com/kerryghan-relot/github-language-analysis/internal/storage/sqlstore"
)

const (
	BackendCSV    = "csv"
	BackendSQLite = "sqlite"
)

// DefaultSQLiteFile is the database name used when Config.SQLitePath is empty.
const DefaultSQLiteFile = "dataset.sqlite"

// Store loads and saves a complete dataset.
type Store interface {
	Save(ctx context.Context, ds *analytics.Dataset) error
	Load(ctx context.Context) (*analytics.Dataset, error)
	Close() error
}

// Checker is implemented by stores that can verify their own health.
type Checker interface {
	Check(ctx context.Context) error
}

// Config selects and configures a backend.
type Config struct {
	Backend    string
	Dir        string
	SQLitePath string
	PruneStale bool
}

// New opens the configured backend. Every save is counted in metrics.
func New(ctx context.Context, cfg Config) (Store, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if backend == "" {
		backend = BackendCSV
	}

	var inner Store
	switch backend {
	case BackendCSV:
		inner = csvstore.New(cfg.Dir, csvstore.Options{PruneStale: cfg.PruneStale})
	case BackendSQLite:
		path := cfg.SQLitePath
		if path == "" {
			path = filepath.Join(cfg.Dir, DefaultSQLiteFile)
		}
		st, err := sqlstore.Open(ctx, path)
		if err != nil {
			return nil, err
		}
		inner = st
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", cfg.Backend)
	}
	return &instrumented{Store: inner, backend: backend}, nil
}

type instrumented struct {
	Store
	backend string
}

func (s *instrumented) Save(ctx context.Context, ds *analytics.Dataset) error {
	err := s.Store.Save(ctx, ds)
	metrics.IncStoreSave(s.backend, err)
	if err == nil {
		metrics.SetDatasetRepositories(ds.Len())
	}
	return err
}

// Check delegates to the backend when it supports health checks.
func (s *instrumented) Check(ctx context.Context) error {
	if c, ok := s.Store.(Checker); ok {
		return c.Check(ctx)
	}
	return nil
}

// BackendOf returns the backend name of a store created by New, or "" otherwise.
func BackendOf(st Store) string {
	if i, ok := st.(*instrumented); ok {
		return i.backend
	}
	return ""
}
