// Package persistence implements the BD_AGRO store on Postgres.
package persistence

import (
	"context"

	gerrors "github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/agrotomo/bdagro-sync/modules/bdagro/domain/schema"
	"github.com/agrotomo/bdagro-sync/modules/bdagro/domain/store"
)

const (
	DefaultPageSize = 500

	groupNamesQuery = `SELECT c.id, g.nome
FROM clientes c
INNER JOIN cliente_grupo g ON c.grupo_id = g.id
WHERE c.id = ANY($1) AND g.nome IS NOT NULL`
)

type BDAgroRepository struct {
	db       DB
	pageSize int
}

type Option func(*BDAgroRepository)

// WithPageSize caps the rows sent per COPY. Values below 1 keep the default.
func WithPageSize(n int) Option {
	return func(r *BDAgroRepository) {
		if n > 0 {
			r.pageSize = n
		}
	}
}

func NewBDAgroRepository(db DB, opts ...Option) *BDAgroRepository {
	r := &BDAgroRepository{db: db, pageSize: DefaultPageSize}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ store.Repository = (*BDAgroRepository)(nil)

func (r *BDAgroRepository) GroupNames(ctx context.Context, clientIDs []int64) (map[int64]string, error) {
	out := make(map[int64]string, len(clientIDs))
	if len(clientIDs) == 0 {
		return out, nil
	}
	rows, err := r.db.Query(ctx, groupNamesQuery, clientIDs)
	if err != nil {
		return nil, gerrors.Wrap(err, "query group names")
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, gerrors.Wrap(err, "scan group name")
		}
		out[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, gerrors.Wrap(err, "iterate group names")
	}
	return out, nil
}

func (r *BDAgroRepository) DeleteClients(ctx context.Context, target store.Target, clientIDs []int64) (int64, error) {
	if err := target.Validate(); err != nil {
		return 0, err
	}
	if len(clientIDs) == 0 {
		return 0, nil
	}
	var n int64
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		var err error
		n, err = deleteClients(ctx, tx, target, clientIDs)
		return err
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (r *BDAgroRepository) InsertRows(ctx context.Context, target store.Target, columns []string, rows [][]any) (int64, error) {
	if err := target.Validate(); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	var n int64
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		var err error
		n, err = r.copyRows(ctx, tx, target, columns, rows)
		return err
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (r *BDAgroRepository) ReplaceClients(ctx context.Context, target store.Target, clientIDs []int64, columns []string, rows [][]any) (int64, int64, error) {
	if err := target.Validate(); err != nil {
		return 0, 0, err
	}
	var deleted, inserted int64
	err := inTx(ctx, r.db, func(tx pgx.Tx) error {
		var err error
		if len(clientIDs) > 0 {
			if deleted, err = deleteClients(ctx, tx, target, clientIDs); err != nil {
				return err
			}
		}
		if len(rows) > 0 {
			inserted, err = r.copyRows(ctx, tx, target, columns, rows)
		}
		return err
	})
	if err != nil {
		return 0, 0, err
	}
	return deleted, inserted, nil
}

func identifier(target store.Target) pgx.Identifier {
	if target.Schema == "" {
		return pgx.Identifier{target.Table}
	}
	return pgx.Identifier{target.Schema, target.Table}
}

func deleteClients(ctx context.Context, tx pgx.Tx, target store.Target, clientIDs []int64) (int64, error) {
	query := "DELETE FROM " + identifier(target).Sanitize() +
		" WHERE " + pgx.Identifier{schema.ClientIDColumn}.Sanitize() + " = ANY($1)"
	tag, err := tx.Exec(ctx, query, clientIDs)
	if err != nil {
		return 0, gerrors.Wrap(err, "delete rows")
	}
	return tag.RowsAffected(), nil
}

// copyRows streams rows with COPY, pageSize rows per call.
func (r *BDAgroRepository) copyRows(ctx context.Context, tx pgx.Tx, target store.Target, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, gerrors.New("insert rows: no columns")
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return 0, gerrors.Errorf("insert rows: row %d has %d values, want %d", i, len(row), len(columns))
		}
	}
	page := max(r.pageSize, 1)

	var total int64
	for start := 0; start < len(rows); start += page {
		chunk := rows[start:min(start+page, len(rows))]
		n, err := tx.CopyFrom(ctx, identifier(target), columns, pgx.CopyFromRows(chunk))
		if err != nil {
			return 0, gerrors.Wrapf(err, "insert rows %d-%d", start, start+len(chunk)-1)
		}
		total += n
	}
	return total, nil
}
