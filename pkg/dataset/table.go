// Package dataset holds the in-memory tabular structure passed between
// pipeline stages. Tables are never modified after construction: every
// transformation returns a new *Table.
package dataset

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingColumn   = errors.New("missing column")
	ErrDuplicateColumn = errors.New("duplicate column")
	ErrRowWidth        = errors.New("row width does not match columns")
)

// Table is an ordered set of named columns and rows of scalar values.
// A nil cell is a null.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]any
}

// Empty returns a table with no columns and no rows.
func Empty() *Table {
	return &Table{index: map[string]int{}}
}

// New builds a table from columns and rows. Rows are copied.
func New(columns []string, rows [][]any) (*Table, error) {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, ok := index[c]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateColumn, c)
		}
		index[c] = i
	}
	out := &Table{
		columns: append([]string(nil), columns...),
		index:   index,
		rows:    make([][]any, 0, len(rows)),
	}
	for i, r := range rows {
		if len(r) != len(columns) {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", ErrRowWidth, i, len(r), len(columns))
		}
		out.rows = append(out.rows, append([]any(nil), r...))
	}
	return out, nil
}

// MustNew is New for fixtures; it panics on error.
func MustNew(columns []string, rows [][]any) *Table {
	t, err := New(columns, rows)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

func (t *Table) Width() int {
	if t == nil {
		return 0
	}
	return len(t.columns)
}

// IsEmpty reports whether the table has neither columns nor rows.
func (t *Table) IsEmpty() bool {
	return t.Width() == 0 && t.Len() == 0
}

func (t *Table) Has(column string) bool {
	_, ok := t.index[column]
	return ok
}

// Lookup resolves a column name exactly, then case-insensitively.
func (t *Table) Lookup(column string) (string, bool) {
	if _, ok := t.index[column]; ok {
		return column, true
	}
	for _, c := range t.columns {
		if strings.EqualFold(c, column) {
			return c, true
		}
	}
	return "", false
}

// Value returns the cell at row i for column, or nil when the column is unknown.
func (t *Table) Value(i int, column string) any {
	j, ok := t.index[column]
	if !ok {
		return nil
	}
	return t.rows[i][j]
}

// Row returns a copy of row i.
func (t *Table) Row(i int) []any {
	return append([]any(nil), t.rows[i]...)
}

// Rows returns a copy of every row.
func (t *Table) Rows() [][]any {
	out := make([][]any, len(t.rows))
	for i := range t.rows {
		out[i] = t.Row(i)
	}
	return out
}

// Column returns a copy of the values of column.
func (t *Table) Column(column string) ([]any, error) {
	j, ok := t.index[column]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, column)
	}
	out := make([]any, len(t.rows))
	for i, r := range t.rows {
		out[i] = r[j]
	}
	return out, nil
}

// Select projects the table onto columns, in that order. Names are resolved
// with Lookup; the output uses the requested names.
func (t *Table) Select(columns []string) (*Table, error) {
	src := make([]int, len(columns))
	var missing []string
	for k, c := range columns {
		name, ok := t.Lookup(c)
		if !ok {
			missing = append(missing, c)
			continue
		}
		src[k] = t.index[name]
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	rows := make([][]any, len(t.rows))
	for i, r := range t.rows {
		row := make([]any, len(columns))
		for k, j := range src {
			row[k] = r[j]
		}
		rows[i] = row
	}
	return New(columns, rows)
}

// Rename maps every column name through fn.
func (t *Table) Rename(fn func(string) string) (*Table, error) {
	columns := make([]string, len(t.columns))
	for i, c := range t.columns {
		columns[i] = fn(c)
	}
	return New(columns, t.rows)
}

// WithColumn sets column to values. An existing column keeps its position;
// a new one is appended.
func (t *Table) WithColumn(column string, values []any) (*Table, error) {
	if len(values) != len(t.rows) {
		return nil, fmt.Errorf("%w: column %s has %d values, want %d", ErrRowWidth, column, len(values), len(t.rows))
	}
	columns := t.Columns()
	j, exists := t.index[column]
	if !exists {
		columns = append(columns, column)
		j = len(columns) - 1
	}
	rows := make([][]any, len(t.rows))
	for i, r := range t.rows {
		row := make([]any, len(columns))
		copy(row, r)
		row[j] = values[i]
		rows[i] = row
	}
	return New(columns, rows)
}

// WithConstant sets column to v on every row.
func (t *Table) WithConstant(column string, v any) (*Table, error) {
	values := make([]any, len(t.rows))
	for i := range values {
		values[i] = v
	}
	return t.WithColumn(column, values)
}

// Map replaces every value of column with fn(value).
func (t *Table) Map(column string, fn func(any) any) (*Table, error) {
	values, err := t.Column(column)
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		values[i] = fn(v)
	}
	return t.WithColumn(column, values)
}

// Concat appends the rows of other below t. The result holds the union of
// both column sets in first-appearance order; missing cells are nil.
func (t *Table) Concat(other *Table) *Table {
	columns := t.Columns()
	index := make(map[string]int, len(columns)+other.Width())
	for i, c := range columns {
		index[c] = i
	}
	for _, c := range other.columns {
		if _, ok := index[c]; !ok {
			index[c] = len(columns)
			columns = append(columns, c)
		}
	}
	rows := make([][]any, 0, len(t.rows)+len(other.rows))
	for _, src := range []*Table{t, other} {
		for _, r := range src.rows {
			row := make([]any, len(columns))
			for j, c := range src.columns {
				row[index[c]] = r[j]
			}
			rows = append(rows, row)
		}
	}
	return &Table{columns: columns, index: index, rows: rows}
}
