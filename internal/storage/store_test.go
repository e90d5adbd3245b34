// SPDX-License-Identifier: MIT

package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/kerryghan-relot/github-language-analysis/internal/analytics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dataset() *analytics.Dataset {
	ds := analytics.NewDataset()
	ds.Put(analytics.Summary{
		Name:      "octo/cat",
		CreatedAt: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC),
		Topics:    []string{"demo"},
	}, analytics.Matrix{Rows: []analytics.MatrixRow{
		{Date: time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC), Shares: map[string]float64{".py": 1}},
	}})
	return ds
}

func TestNew_Backends(t *testing.T) {
	for _, backend := range []string{"", "csv", "CSV", "sqlite"} {
		t.Run("backend="+backend, func(t *testing.T) {
			ctx := context.Background()
			st, err := New(ctx, Config{Backend: backend, Dir: t.TempDir()})
			require.NoError(t, err)
			defer st.Close()

			require.NoError(t, st.Save(ctx, dataset()))
			got, err := st.Load(ctx)
			require.NoError(t, err)
			s, ok := got.Get("octo/cat")
			require.True(t, ok)
			assert.Equal(t, []string{"demo"}, s.Topics)

			c, ok := st.(Checker)
			require.True(t, ok)
			assert.NoError(t, c.Check(ctx))
		})
	}
}

func TestNew_SQLitePathOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom", "gla.db")
	st, err := New(context.Background(), Config{Backend: BackendSQLite, Dir: t.TempDir(), SQLitePath: path})
	require.NoError(t, err)
	defer st.Close()
	assert.FileExists(t, path)
	assert.Equal(t, BackendSQLite, BackendOf(st))
}

func TestNew_UnknownBackend(t *testing.T) {
	_, err := New(context.Background(), Config{Backend: "parquet"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parquet")
}
