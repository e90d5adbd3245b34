// SPDX-License-Identifier: MIT

// Package sqlstore persists a dataset in a single SQLite database.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kerryghan-relot/github-language-analysis/internal/analytics"
	xglog "github.com/kerryghan-relot/github-language-analysis/internal/log"
	"github.com/kerryghan-relot/github-language-analysis/internal/persistence/sqlite"
	"github.com/rs/zerolog"
)

// schema is applied in order; see sqlite.Migrate.
var schema = []string{
	`
CREATE TABLE repositories (
	position          INTEGER NOT NULL,
	name              TEXT PRIMARY KEY,
	created_at        TEXT NOT NULL,
	updated_at        TEXT NOT NULL,
	file_count        INTEGER NOT NULL DEFAULT 0,
	release_count     INTEGER NOT NULL DEFAULT 0,
	size              INTEGER NOT NULL DEFAULT 0,
	star_count        INTEGER NOT NULL DEFAULT 0,
	fork_count        INTEGER NOT NULL DEFAULT 0,
	contributor_count INTEGER NOT NULL DEFAULT 0,
	commit_count      INTEGER NOT NULL DEFAULT 0,
	issue_count       INTEGER NOT NULL DEFAULT 0,
	topics            TEXT NOT NULL DEFAULT '[]'
);
CREATE TABLE matrix_rows (
	repository TEXT NOT NULL REFERENCES repositories(name) ON DELETE CASCADE,
	row        INTEGER NOT NULL,
	date       TEXT NOT NULL,
	PRIMARY KEY (repository, row)
);
CREATE TABLE language_shares (
	repository TEXT NOT NULL,
	row        INTEGER NOT NULL,
	extension  TEXT NOT NULL,
	share      REAL NOT NULL,
	PRIMARY KEY (repository, row, extension),
	FOREIGN KEY (repository, row) REFERENCES matrix_rows(repository, row) ON DELETE CASCADE
);`,
	`CREATE INDEX idx_language_shares_extension ON language_shares(extension);`,
}

// Store is a SQLite-backed dataset store.
type Store struct {
	db     *sql.DB
	path   string
	logger zerolog.Logger
}

// Open opens (creating if needed) the database at path and migrates it.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("sqlstore: create directory: %w", err)
	}
	db, err := sqlite.Open(path, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}

	version, err := sqlite.Migrate(ctx, db, schema)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	logger := xglog.WithComponent("sqlstore")
	logger.Debug().
		Str(xglog.FieldEvent, "sqlstore.opened").
		Str(xglog.FieldPath, path).
		Int("schema_version", version).
		Msg("dataset database ready")
	return &Store{db: db, path: path, logger: logger}, nil
}

// Path returns the database file.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Check runs a quick integrity check.
func (s *Store) Check(ctx context.Context) error {
	issues, err := sqlite.VerifyIntegrity(ctx, s.db, false)
	if err != nil {
		return err
	}
	if len(issues) > 0 {
		return fmt.Errorf("sqlstore: integrity check failed: %v", issues)
	}
	return nil
}

// Save replaces the stored dataset in a single transaction.
func (s *Store) Save(ctx context.Context, ds *analytics.Dataset) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlstore: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM repositories`); err != nil {
		return fmt.Errorf("sqlstore: clear: %w", err)
	}

	insRepo, err := tx.PrepareContext(ctx, `
INSERT INTO repositories (position, name, created_at, updated_at, file_count, release_count,
	size, star_count, fork_count, contributor_count, commit_count, issue_count, topics)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlstore: prepare: %w", err)
	}
	defer insRepo.Close()
	insRow, err := tx.PrepareContext(ctx, `INSERT INTO matrix_rows (repository, row, date) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlstore: prepare: %w", err)
	}
	defer insRow.Close()
	insShare, err := tx.PrepareContext(ctx, `INSERT INTO language_shares (repository, row, extension, share) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlstore: prepare: %w", err)
	}
	defer insShare.Close()

	position := 0
	ds.Each(func(sum analytics.Summary, m analytics.Matrix) bool {
		topics := sum.Topics
		if topics == nil {
			topics = []string{}
		}
		var raw []byte
		if raw, err = json.Marshal(topics); err != nil {
			return false
		}
		if _, err = insRepo.ExecContext(ctx, position, sum.Name,
			sum.CreatedAt.Format(analytics.DateLayout), sum.UpdatedAt.Format(analytics.DateLayout),
			sum.FileCount, sum.ReleaseCount, sum.Size, sum.StarCount, sum.ForkCount,
			sum.ContributorCount, sum.CommitCount, sum.IssueCount, string(raw)); err != nil {
			err = fmt.Errorf("sqlstore: insert %s: %w", sum.Name, err)
			return false
		}
		for i, row := range m.Rows {
			if _, err = insRow.ExecContext(ctx, sum.Name, i, row.Date.Format(analytics.DateLayout)); err != nil {
				err = fmt.Errorf("sqlstore: insert %s row %d: %w", sum.Name, i, err)
				return false
			}
			for ext, share := range row.Shares {
				if share == 0 {
					continue
				}
				if _, err = insShare.ExecContext(ctx, sum.Name, i, ext, share); err != nil {
					err = fmt.Errorf("sqlstore: insert %s share %s: %w", sum.Name, ext, err)
					return false
				}
			}
		}
		position++
		return true
	})
	if err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("sqlstore: commit: %w", err)
	}
	s.logger.Debug().
		Str(xglog.FieldEvent, "dataset.saved").
		Str(xglog.FieldPath, s.path).
		Int("repositories", position).
		Msg("dataset written")
	return nil
}

// Load reads the stored dataset in insertion order.
func (s *Store) Load(ctx context.Context) (*analytics.Dataset, error) {
	summaries, err := s.loadSummaries(ctx)
	if err != nil {
		return nil, err
	}
	matrices, err := s.loadMatrices(ctx)
	if err != nil {
		return nil, err
	}

	ds := analytics.NewDataset()
	for _, sum := range summaries {
		ds.Put(sum, matrices[sum.Name])
	}
	return ds, nil
}

func (s *Store) loadSummaries(ctx context.Context) ([]analytics.Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT name, created_at, updated_at, file_count, release_count, size, star_count,
	fork_count, contributor_count, commit_count, issue_count, topics
FROM repositories ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: query repositories: %w", err)
	}
	defer rows.Close()

	var out []analytics.Summary
	for rows.Next() {
		var (
			sum                  analytics.Summary
			created, updated, tj string
		)
		if err := rows.Scan(&sum.Name, &created, &updated, &sum.FileCount, &sum.ReleaseCount,
			&sum.Size, &sum.StarCount, &sum.ForkCount, &sum.ContributorCount, &sum.CommitCount,
			&sum.IssueCount, &tj); err != nil {
			return nil, fmt.Errorf("sqlstore: scan repository: %w", err)
		}
		if sum.CreatedAt, err = parseDate(created); err != nil {
			return nil, fmt.Errorf("sqlstore: %s created_at: %w", sum.Name, err)
		}
		if sum.UpdatedAt, err = parseDate(updated); err != nil {
			return nil, fmt.Errorf("sqlstore: %s updated_at: %w", sum.Name, err)
		}
		if err := json.Unmarshal([]byte(tj), &sum.Topics); err != nil {
			return nil, fmt.Errorf("sqlstore: %s topics: %w", sum.Name, err)
		}
		if len(sum.Topics) == 0 {
			sum.Topics = nil
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

func (s *Store) loadMatrices(ctx context.Context) (map[string]analytics.Matrix, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT m.repository, m.row, m.date, l.extension, l.share
FROM matrix_rows m
LEFT JOIN language_shares l ON l.repository = m.repository AND l.row = m.row
ORDER BY m.repository, m.row`)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: query matrices: %w", err)
	}
	defer rows.Close()

	out := map[string]analytics.Matrix{}
	for rows.Next() {
		var (
			repo, date string
			idx        int
			ext        sql.NullString
			share      sql.NullFloat64
		)
		if err := rows.Scan(&repo, &idx, &date, &ext, &share); err != nil {
			return nil, fmt.Errorf("sqlstore: scan matrix row: %w", err)
		}
		m := out[repo]
		if idx >= len(m.Rows) {
			d, err := parseDate(date)
			if err != nil {
				return nil, fmt.Errorf("sqlstore: %s row %d: %w", repo, idx, err)
			}
			m.Rows = append(m.Rows, analytics.MatrixRow{Date: d, Shares: map[string]float64{}})
		}
		if ext.Valid && share.Valid {
			m.Rows[len(m.Rows)-1].Shares[ext.String] = share.Float64
		}
		out[repo] = m
	}
	return out, rows.Err()
}

func parseDate(v string) (time.Time, error) {
	t, err := time.Parse(analytics.DateLayout, v)
	if err != nil {
		return time.Time{}, errors.New("invalid date " + v)
	}
	return t, nil
}
