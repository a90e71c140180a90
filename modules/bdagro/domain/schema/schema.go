// Package schema declares the canonical BD_AGRO column set and the semantic
// type of every column.
package schema

import (
	"errors"
	"fmt"
	"strings"
)

var ErrSchemaViolation = errors.New("schema violation")

// ViolationError lists the declared columns absent from a dataset.
type ViolationError struct {
	Missing []string
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("%s: missing columns %s", ErrSchemaViolation, strings.Join(e.Missing, ", "))
}

func (e *ViolationError) Unwrap() error {
	return ErrSchemaViolation
}

// Column is a declared column. Name keeps the casing used by the export
// files; Enriched columns are filled in by a later stage and need not be
// present in the source data.
type Column struct {
	Name     string
	Type     Type
	Enriched bool
}

// Output is the column name as it appears after normalization.
func (c Column) Output() string {
	return strings.ToLower(c.Name)
}

// Schema is an ordered, immutable list of columns.
type Schema struct {
	columns []Column
}

func New(columns ...Column) Schema {
	return Schema{columns: append([]Column(nil), columns...)}
}

func (s Schema) Columns() []Column {
	return append([]Column(nil), s.columns...)
}

func (s Schema) Len() int {
	return len(s.columns)
}

// Names returns the declared (source) names in order.
func (s Schema) Names() []string {
	out := make([]string, len(s.columns))
	for i, c := range s.columns {
		out[i] = c.Name
	}
	return out
}

// OutputNames returns the lower-cased names in order.
func (s Schema) OutputNames() []string {
	out := make([]string, len(s.columns))
	for i, c := range s.columns {
		out[i] = c.Output()
	}
	return out
}

// Lookup finds a column by name, ignoring case.
func (s Schema) Lookup(name string) (Column, bool) {
	for _, c := range s.columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Column{}, false
}

// With returns a copy of s with c appended, or replacing the column of the
// same name.
func (s Schema) With(c Column) Schema {
	out := s.Columns()
	for i, existing := range out {
		if strings.EqualFold(existing.Name, c.Name) {
			out[i] = c
			return Schema{columns: out}
		}
	}
	return Schema{columns: append(out, c)}
}
