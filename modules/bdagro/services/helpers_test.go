package services_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/agrotomo/bdagro-sync/modules/bdagro/domain/schema"
	"github.com/agrotomo/bdagro-sync/modules/bdagro/domain/store"
	"github.com/agrotomo/bdagro-sync/pkg/dataset"
	"github.com/agrotomo/bdagro-sync/pkg/eventbus"
)

// sourceColumns are the columns of a BD_AGRO export file as delivered.
func sourceColumns() []string {
	var out []string
	for _, c := range schema.BDAgro().Columns() {
		switch c.Name {
		case schema.ClientIDColumn, schema.ClientNameColumn, schema.GroupColumn:
			continue
		}
		out = append(out, c.Name)
	}
	return out
}

// exportTable builds an export file table; every row starts from nil and
// takes the values in overrides, keyed by source column name.
func exportTable(t *testing.T, overrides ...map[string]any) *dataset.Table {
	t.Helper()
	columns := sourceColumns()
	rows := make([][]any, len(overrides))
	for i, o := range overrides {
		row := make([]any, len(columns))
		for j, c := range columns {
			row[j] = o[c]
		}
		rows[i] = row
	}
	tbl, err := dataset.New(columns, rows)
	if err != nil {
		t.Fatalf("build export table: %v", err)
	}
	return tbl
}

type fakeReader struct {
	tables map[string]*dataset.Table
	err    error
	reads  []string
}

func (r *fakeReader) ReadTable(_ context.Context, path string) (*dataset.Table, error) {
	r.reads = append(r.reads, path)
	if r.err != nil {
		return nil, r.err
	}
	tbl, ok := r.tables[path]
	if !ok {
		return nil, errors.New("no such file: " + path)
	}
	return tbl, nil
}

type storedRow struct {
	values map[string]any
}

// memoryStore is a Repository over an in-memory table keyed by client id.
type memoryStore struct {
	mu     sync.Mutex
	groups map[int64]string
	rows   []storedRow

	lookupErr  error
	deleteErr  error
	insertErr  error
	replaceErr error

	lookups  [][]int64
	deletes  [][]int64
	inserts  int
	replaces int
	columns  []string
}

func (m *memoryStore) GroupNames(_ context.Context, ids []int64) (map[int64]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups = append(m.lookups, ids)
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	out := map[int64]string{}
	for _, id := range ids {
		if g, ok := m.groups[id]; ok {
			out[id] = g
		}
	}
	return out, nil
}

func (m *memoryStore) DeleteClients(_ context.Context, target store.Target, ids []int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes = append(m.deletes, ids)
	if m.deleteErr != nil {
		return 0, m.deleteErr
	}
	return m.deleteLocked(ids), nil
}

func (m *memoryStore) deleteLocked(ids []int64) int64 {
	drop := map[int64]bool{}
	for _, id := range ids {
		drop[id] = true
	}
	kept := m.rows[:0]
	var n int64
	for _, r := range m.rows {
		if id, ok := r.values[schema.ClientIDColumn].(int64); ok && drop[id] {
			n++
			continue
		}
		kept = append(kept, r)
	}
	m.rows = kept
	return n
}

func (m *memoryStore) InsertRows(_ context.Context, target store.Target, columns []string, rows [][]any) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserts++
	if m.insertErr != nil {
		return 0, m.insertErr
	}
	m.insertLocked(columns, rows)
	return int64(len(rows)), nil
}

func (m *memoryStore) insertLocked(columns []string, rows [][]any) {
	m.columns = columns
	for _, r := range rows {
		values := make(map[string]any, len(columns))
		for j, c := range columns {
			values[c] = r[j]
		}
		m.rows = append(m.rows, storedRow{values: values})
	}
}

func (m *memoryStore) ReplaceClients(_ context.Context, target store.Target, ids []int64, columns []string, rows [][]any) (int64, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replaces++
	if m.replaceErr != nil {
		return 0, 0, m.replaceErr
	}
	deleted := m.deleteLocked(ids)
	m.insertLocked(columns, rows)
	return deleted, int64(len(rows)), nil
}

func (m *memoryStore) rowsFor(id int64) []storedRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []storedRow
	for _, r := range m.rows {
		if r.values[schema.ClientIDColumn] == id {
			out = append(out, r)
		}
	}
	return out
}

// collector records every event published on a bus.
type collector struct {
	mu     sync.Mutex
	events []any
}

func collect(bus eventbus.EventBus) *collector {
	c := &collector{}
	bus.Subscribe(func(e any) {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.events = append(c.events, e)
	})
	return c
}

func eventsOf[T any](c *collector) []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []T
	for _, e := range c.events {
		if v, ok := e.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

func mkdir(t *testing.T, parts ...string) string {
	t.Helper()
	p := filepath.Join(parts...)
	if err := os.MkdirAll(p, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", p, err)
	}
	return p
}

func touch(t *testing.T, parts ...string) string {
	t.Helper()
	p := filepath.Join(parts...)
	if err := os.WriteFile(p, []byte(strings.Repeat("x", 4)), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}
