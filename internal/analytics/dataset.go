// SPDX-License-Identifier: MIT

package analytics

import (
	"slices"
	"sync"
)

// Dataset is the set of collected repositories: one summary and one language
// matrix per repository, in insertion order. It is safe for concurrent use.
type Dataset struct {
	mu      sync.RWMutex
	order   []string // normalised keys
	entries map[string]entry
}

type entry struct {
	summary Summary
	matrix  Matrix
}

// NewDataset returns an empty dataset.
func NewDataset() *Dataset {
	return &Dataset{entries: make(map[string]entry)}
}

// Contains reports whether the repository owner/repo is present.
func (d *Dataset) Contains(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.entries[NormalizeKey(name)]
	return ok
}

// Get returns the summary of a repository.
func (d *Dataset) Get(name string) (Summary, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.entries[NormalizeKey(name)]
	if !ok {
		return Summary{}, false
	}
	return e.summary.clone(), true
}

// Matrix returns the language matrix of a repository.
func (d *Dataset) Matrix(name string) (Matrix, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	e, ok := d.entries[NormalizeKey(name)]
	if !ok {
		return Matrix{}, false
	}
	return e.matrix.Clone(), true
}

// Put stores a summary together with its matrix. An existing entry with the
// same name is replaced in place.
func (d *Dataset) Put(s Summary, m Matrix) {
	key := NormalizeKey(s.Name)

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.entries[key]; !ok {
		d.order = append(d.order, key)
	}
	d.entries[key] = entry{summary: s.clone(), matrix: m.Clone()}
}

// Delete removes a repository. Unknown names are ignored.
func (d *Dataset) Delete(name string) {
	key := NormalizeKey(name)

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.entries[key]; !ok {
		return
	}
	delete(d.entries, key)
	d.order = slices.DeleteFunc(d.order, func(k string) bool { return k == key })
}

// Summaries returns every summary in insertion order.
func (d *Dataset) Summaries() []Summary {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Summary, 0, len(d.order))
	for _, k := range d.order {
		out = append(out, d.entries[k].summary.clone())
	}
	return out
}

// Names returns the repository names in insertion order.
func (d *Dataset) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.order))
	for _, k := range d.order {
		out = append(out, d.entries[k].summary.Name)
	}
	return out
}

// Len returns the number of repositories.
func (d *Dataset) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.order)
}

// Clone returns a deep copy that shares nothing with d.
func (d *Dataset) Clone() *Dataset {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := &Dataset{
		order:   slices.Clone(d.order),
		entries: make(map[string]entry, len(d.entries)),
	}
	for k, e := range d.entries {
		out.entries[k] = entry{summary: e.summary.clone(), matrix: e.matrix.Clone()}
	}
	return out
}

// Each calls fn for every repository in insertion order until fn returns false.
// The dataset is read-locked during the walk; fn must not modify it.
func (d *Dataset) Each(fn func(Summary, Matrix) bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, k := range d.order {
		e := d.entries[k]
		if !fn(e.summary, e.matrix) {
			return
		}
	}
}
