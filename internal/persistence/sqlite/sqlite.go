// SPDX-License-Identifier: MIT

// Package sqlite opens SQLite databases with the pragmas every store relies on
// and applies versioned schema migrations.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go driver
)

// Config defines SQLite operational parameters.
type Config struct {
	BusyTimeout  time.Duration
	MaxOpenConns int
}

// DefaultConfig returns the configuration used by the dataset store.
func DefaultConfig() Config {
	return Config{
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 4,
	}
}

// Open initializes a connection pool in WAL mode. The pragmas are part of the
// DSN so that they apply to every pooled connection.
func Open(dbPath string, cfg Config) (*sql.DB, error) {
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 1
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)",
		dbPath, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open failed: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping failed: %w", err)
	}
	return db, nil
}

// Migrate brings the schema up to len(steps). steps[i] upgrades from version
// i to i+1; PRAGMA user_version records the applied version. Each step runs in
// its own transaction.
func Migrate(ctx context.Context, db *sql.DB, steps []string) (int, error) {
	var current int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		return 0, fmt.Errorf("sqlite: read user_version: %w", err)
	}
	if current > len(steps) {
		return current, fmt.Errorf("sqlite: schema version %d is newer than supported version %d", current, len(steps))
	}

	for v := current; v < len(steps); v++ {
		if err := applyStep(ctx, db, steps[v], v+1); err != nil {
			return v, fmt.Errorf("sqlite: migrate to version %d: %w", v+1, err)
		}
	}
	return len(steps), nil
}

func applyStep(ctx context.Context, db *sql.DB, stmt string, version int) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		return err
	}
	return tx.Commit()
}

// VerifyIntegrity runs PRAGMA quick_check, or integrity_check when full is set.
// It returns the diagnostic rows when the database is damaged, nil when healthy.
func VerifyIntegrity(ctx context.Context, db *sql.DB, full bool) ([]string, error) {
	pragma := "PRAGMA quick_check"
	if full {
		pragma = "PRAGMA integrity_check"
	}

	rows, err := db.QueryContext(ctx, pragma)
	if err != nil {
		return nil, fmt.Errorf("sqlite: integrity pragma failed: %w", err)
	}
	defer rows.Close()

	var results []string
	for rows.Next() {
		var res string
		if err := rows.Scan(&res); err != nil {
			return nil, fmt.Errorf("sqlite: scan integrity result: %w", err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(results) == 1 && strings.EqualFold(results[0], "ok") {
		return nil, nil
	}
	if len(results) == 0 {
		return []string{"no results returned from integrity check"}, nil
	}
	return results, nil
}
