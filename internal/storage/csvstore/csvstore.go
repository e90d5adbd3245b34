// SPDX-License-Identifier: MIT

// Package csvstore persists a dataset as CSV files:
//
//	<dir>/repositories_summary.csv
//	<dir>/language_matrices/<owner>/<repo>.csv
package csvstore

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/renameio/v2"
	"github.com/kerryghan-relot/github-language-analysis/internal/analytics"
	"github.com/kerryghan-relot/github-language-analysis/internal/language"
	xglog "github.com/kerryghan-relot/github-language-analysis/internal/log"
	"github.com/rs/zerolog"
)

const (
	SummaryFile = "repositories_summary.csv"
	MatrixDir   = "language_matrices"
)

// Options tunes a Store.
type Options struct {
	// PruneStale removes matrix files of repositories no longer in the dataset
	// after a successful save.
	PruneStale bool
}

// Store reads and writes a dataset directory.
type Store struct {
	dir    string
	opts   Options
	logger zerolog.Logger
}

// New returns a store rooted at dir. The directory is created on first save.
func New(dir string, opts Options) *Store {
	return &Store{dir: dir, opts: opts, logger: xglog.WithComponent("csvstore")}
}

// Dir returns the dataset directory.
func (s *Store) Dir() string { return s.dir }

// Close is a no-op; files are closed after every save.
func (s *Store) Close() error { return nil }

// Save writes every file atomically. Readers never observe a half-written file,
// but a crash between two files can leave the summary and a matrix from
// different saves.
func (s *Store) Save(ctx context.Context, ds *analytics.Dataset) error {
	if err := os.MkdirAll(filepath.Join(s.dir, MatrixDir), 0o750); err != nil {
		return fmt.Errorf("create dataset directory: %w", err)
	}

	summaries := ds.Summaries()
	if err := s.writeAtomic(ctx, filepath.Join(s.dir, SummaryFile), func(w io.Writer) error {
		return writeSummaries(w, summaries)
	}); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	written := make(map[string]bool, len(summaries))
	for _, sum := range summaries {
		if err := ctx.Err(); err != nil {
			return err
		}
		m, _ := ds.Matrix(sum.Name)
		path, err := s.matrixPath(sum.Name)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return fmt.Errorf("create owner directory: %w", err)
		}
		if err := s.writeAtomic(ctx, path, func(w io.Writer) error {
			return writeMatrix(w, m)
		}); err != nil {
			return fmt.Errorf("write matrix %s: %w", sum.Name, err)
		}
		written[path] = true
	}

	if s.opts.PruneStale {
		if err := s.prune(written); err != nil {
			return fmt.Errorf("prune stale matrices: %w", err)
		}
	}

	s.logger.Debug().
		Str(xglog.FieldEvent, "dataset.saved").
		Str(xglog.FieldPath, s.dir).
		Int("repositories", len(summaries)).
		Msg("dataset written")
	return nil
}

func (s *Store) writeAtomic(ctx context.Context, path string, write func(io.Writer) error) error {
	pendingFile, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o640))
	if err != nil {
		return fmt.Errorf("create pending file: %w", err)
	}
	defer func() {
		if err := pendingFile.Cleanup(); err != nil {
			xglog.FromContext(ctx).Debug().Err(err).Str(xglog.FieldPath, path).Msg("cleanup pending file")
		}
	}()

	if err := write(pendingFile); err != nil {
		return err
	}
	return pendingFile.CloseAtomicallyReplace()
}

// matrixPath rejects names that would escape the matrix directory.
func (s *Store) matrixPath(name string) (string, error) {
	owner, repo, ok := strings.Cut(name, "/")
	if !ok || !validSegment(owner) || !validSegment(repo) {
		return "", fmt.Errorf("invalid repository name %q", name)
	}
	return filepath.Join(s.dir, MatrixDir, owner, repo+".csv"), nil
}

func validSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, `/\`)
}

func (s *Store) prune(keep map[string]bool) error {
	root := filepath.Join(s.dir, MatrixDir)
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root {
				dirs = append(dirs, path)
			}
			return nil
		}
		if filepath.Ext(path) == ".csv" && !keep[path] {
			s.logger.Info().Str(xglog.FieldEvent, "dataset.pruned").Str(xglog.FieldPath, path).Msg("removing stale matrix")
			return os.Remove(path)
		}
		return nil
	})
	if err != nil {
		return err
	}
	// Deepest first; non-empty directories stay.
	for i := len(dirs) - 1; i >= 0; i-- {
		_ = os.Remove(dirs[i])
	}
	return nil
}

// Load reads the dataset. A missing or empty directory yields an empty dataset.
// Matrices without a summary row are ignored.
func (s *Store) Load(ctx context.Context) (*analytics.Dataset, error) {
	ds := analytics.NewDataset()

	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && len(entries) == 0) {
		return ds, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read dataset directory: %w", err)
	}

	f, err := os.Open(filepath.Join(s.dir, SummaryFile))
	if err != nil {
		return nil, fmt.Errorf("open summary: %w", err)
	}
	defer f.Close()

	summaries, err := readSummaries(f)
	if err != nil {
		return nil, fmt.Errorf("read summary: %w", err)
	}

	for _, sum := range summaries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		m, err := s.loadMatrix(sum.Name)
		if err != nil {
			return nil, fmt.Errorf("read matrix %s: %w", sum.Name, err)
		}
		ds.Put(sum, m)
	}

	s.warnOrphans(ds)
	return ds, nil
}

func (s *Store) loadMatrix(name string) (analytics.Matrix, error) {
	path, err := s.matrixPath(name)
	if err != nil {
		return analytics.Matrix{}, err
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn().Str(xglog.FieldRepository, name).Msg("summary without language matrix")
		return analytics.Matrix{}, nil
	}
	if err != nil {
		return analytics.Matrix{}, err
	}
	defer f.Close()
	return readMatrix(f)
}

func (s *Store) warnOrphans(ds *analytics.Dataset) {
	root := filepath.Join(s.dir, MatrixDir)
	owners, err := os.ReadDir(root)
	if err != nil {
		return
	}
	for _, owner := range owners {
		if !owner.IsDir() {
			continue
		}
		files, err := os.ReadDir(filepath.Join(root, owner.Name()))
		if err != nil {
			continue
		}
		for _, file := range files {
			repo, ok := strings.CutSuffix(file.Name(), ".csv")
			if !ok {
				continue
			}
			name := owner.Name() + "/" + repo
			if !ds.Contains(name) {
				s.logger.Warn().Str(xglog.FieldRepository, name).Msg("language matrix without summary row, ignored")
			}
		}
	}
}

func writeSummaries(w io.Writer, summaries []analytics.Summary) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(analytics.Features); err != nil {
		return err
	}
	for _, s := range summaries {
		record := []string{
			s.Name,
			s.CreatedAt.Format(analytics.DateLayout),
			s.UpdatedAt.Format(analytics.DateLayout),
			strconv.Itoa(s.FileCount),
			strconv.Itoa(s.ReleaseCount),
			strconv.FormatInt(s.Size, 10),
			strconv.Itoa(s.StarCount),
			strconv.Itoa(s.ForkCount),
			strconv.Itoa(s.ContributorCount),
			strconv.Itoa(s.CommitCount),
			strconv.Itoa(s.IssueCount),
			FormatTopics(s.Topics),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func readSummaries(r io.Reader) ([]analytics.Summary, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimSpace(h)] = i
	}
	for _, f := range analytics.Features {
		if _, ok := col[f]; !ok {
			return nil, fmt.Errorf("missing column %q", f)
		}
	}

	var out []analytics.Summary
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		p := fieldParser{rec: rec, col: col}
		s := analytics.Summary{
			Name:             p.str("name"),
			CreatedAt:        p.date("created_at"),
			UpdatedAt:        p.date("updated_at"),
			FileCount:        p.integer("file_count"),
			ReleaseCount:     p.integer("release_count"),
			Size:             int64(p.integer("size")),
			StarCount:        p.integer("star_count"),
			ForkCount:        p.integer("fork_count"),
			ContributorCount: p.integer("contributor_count"),
			CommitCount:      p.integer("commit_count"),
			IssueCount:       p.integer("issue_count"),
			Topics:           ParseTopics(p.str("topics")),
		}
		if p.err != nil {
			return nil, fmt.Errorf("line %d: %w", line, p.err)
		}
		out = append(out, s)
	}
}

type fieldParser struct {
	rec []string
	col map[string]int
	err error
}

// str returns "" for a column missing from the header or the row.
func (p *fieldParser) str(name string) string {
	i, ok := p.col[name]
	if !ok || i >= len(p.rec) {
		return ""
	}
	return strings.TrimSpace(p.rec[i])
}

// integer accepts integers written as floats ("12.0").
func (p *fieldParser) integer(name string) int {
	v := p.str(name)
	if v == "" {
		return 0
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("column %s: %w", name, err)
	}
	return int(f)
}

func (p *fieldParser) date(name string) time.Time {
	t, err := parseDate(p.str(name))
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("column %s: %w", name, err)
	}
	return t
}

// parseDate accepts plain dates and full timestamps.
func parseDate(v string) (time.Time, error) {
	if t, err := time.Parse(analytics.DateLayout, v); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, err
	}
	return analytics.DateOf(t), nil
}

func writeMatrix(w io.Writer, m analytics.Matrix) error {
	exts := language.SupportedExtensions()
	cw := csv.NewWriter(w)
	if err := cw.Write(analytics.Columns()); err != nil {
		return err
	}
	record := make([]string, len(exts)+1)
	for _, row := range m.Rows {
		record[0] = row.Date.Format(analytics.DateLayout)
		for i, ext := range exts {
			record[i+1] = strconv.FormatFloat(row.Share(ext), 'f', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// readMatrix maps columns by header name; unknown columns are ignored and
// missing ones read as zero.
func readMatrix(r io.Reader) (analytics.Matrix, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return analytics.Matrix{}, nil
	}
	if err != nil {
		return analytics.Matrix{}, err
	}

	dateCol := -1
	extCols := map[int]string{}
	for i, h := range header {
		h = strings.TrimSpace(h)
		switch {
		case h == "date":
			dateCol = i
		case language.IsSupported(h):
			extCols[i] = h
		}
	}
	if dateCol < 0 {
		return analytics.Matrix{}, errors.New(`missing column "date"`)
	}

	var m analytics.Matrix
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return m, nil
		}
		if err != nil {
			return analytics.Matrix{}, err
		}
		if dateCol >= len(rec) {
			return analytics.Matrix{}, errors.New("row has no date")
		}
		date, err := parseDate(strings.TrimSpace(rec[dateCol]))
		if err != nil {
			return analytics.Matrix{}, fmt.Errorf("date: %w", err)
		}
		row := analytics.MatrixRow{Date: date, Shares: map[string]float64{}}
		for i, ext := range extCols {
			if i >= len(rec) {
				continue
			}
			v := strings.TrimSpace(rec[i])
			if v == "" {
				continue
			}
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return analytics.Matrix{}, fmt.Errorf("column %s: %w", ext, err)
			}
			if f != 0 {
				row.Shares[ext] = f
			}
		}
		m.Rows = append(m.Rows, row)
	}
}
