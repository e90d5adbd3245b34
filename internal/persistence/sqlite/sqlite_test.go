// SPDX-License-Identifier: MIT

package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_EnablesWAL(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "wal.sqlite"), DefaultConfig())
	require.NoError(t, err)
	defer db.Close()

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var fk int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestMigrate_AppliesPendingSteps(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "migrate.sqlite")
	steps := []string{
		`CREATE TABLE a (id INTEGER PRIMARY KEY);`,
		`ALTER TABLE a ADD COLUMN name TEXT;`,
	}

	db, err := Open(path, DefaultConfig())
	require.NoError(t, err)

	v, err := Migrate(ctx, db, steps[:1])
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = Migrate(ctx, db, steps)
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	_, err = db.Exec(`INSERT INTO a (id, name) VALUES (1, 'x')`)
	require.NoError(t, err)

	// Re-running is a no-op.
	v, err = Migrate(ctx, db, steps)
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	var userVersion int
	require.NoError(t, db.QueryRow("PRAGMA user_version").Scan(&userVersion))
	assert.Equal(t, 2, userVersion)

	_, err = Migrate(ctx, db, steps[:1])
	require.Error(t, err, "a newer schema must not be downgraded")
	require.NoError(t, db.Close())
}

func TestMigrate_FailedStepRollsBack(t *testing.T) {
	ctx := context.Background()
	db, err := Open(filepath.Join(t.TempDir(), "broken.sqlite"), DefaultConfig())
	require.NoError(t, err)
	defer db.Close()

	v, err := Migrate(ctx, db, []string{`CREATE TABLE ok (id INTEGER);`, `THIS IS NOT SQL;`})
	require.Error(t, err)
	assert.Equal(t, 1, v)

	var userVersion int
	require.NoError(t, db.QueryRow("PRAGMA user_version").Scan(&userVersion))
	assert.Equal(t, 1, userVersion)
}

func TestVerifyIntegrity_Healthy(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "healthy.sqlite"), DefaultConfig())
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE t (id INTEGER PRIMARY KEY, data TEXT)`)
	require.NoError(t, err)

	for _, full := range []bool{false, true} {
		issues, err := VerifyIntegrity(context.Background(), db, full)
		require.NoError(t, err)
		assert.Nil(t, issues)
	}
}
