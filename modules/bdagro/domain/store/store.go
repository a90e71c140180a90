// Package store declares what the pipeline needs from the relational store.
package store

import (
	"context"
	"errors"
	"strings"
)

var ErrEmptyTarget = errors.New("target table is required")

// Target names the persistent table rows are synchronized into.
type Target struct {
	Schema string
	Table  string
}

func (t Target) Validate() error {
	if strings.TrimSpace(t.Table) == "" {
		return ErrEmptyTarget
	}
	return nil
}

func (t Target) String() string {
	if t.Schema == "" {
		return t.Table
	}
	return t.Schema + "." + t.Table
}

// GroupLookup resolves the group name of each client id. Ids without a group
// are absent from the result.
type GroupLookup interface {
	GroupNames(ctx context.Context, clientIDs []int64) (map[int64]string, error)
}

// Repository is the persistent BD_AGRO table. Every call acquires and
// releases its own connection.
type Repository interface {
	GroupLookup

	// DeleteClients removes every row whose client_id is in clientIDs and
	// commits.
	DeleteClients(ctx context.Context, target Target, clientIDs []int64) (int64, error)

	// InsertRows writes rows, whose values follow columns, and commits.
	InsertRows(ctx context.Context, target Target, columns []string, rows [][]any) (int64, error)

	// ReplaceClients runs the delete and the insert in one transaction.
	ReplaceClients(ctx context.Context, target Target, clientIDs []int64, columns []string, rows [][]any) (deleted, inserted int64, err error)
}
