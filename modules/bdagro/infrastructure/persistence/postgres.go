package persistence

import (
	"context"
	"errors"

	gerrors "github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the part of *pgxpool.Pool the store needs.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

var _ DB = (*pgxpool.Pool)(nil)

// Open builds a pgx pool. Connections are established on first use, so an
// unreachable server surfaces as an error of the first store operation.
func Open(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, gerrors.Wrap(err, "parse connection string")
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, gerrors.Wrap(err, "create pool")
	}
	return pool, nil
}

// inTx runs fn in a transaction on a connection of its own. The transaction
// is rolled back when fn fails and committed otherwise; either way the
// connection goes back to the pool.
func inTx(ctx context.Context, db DB, fn func(pgx.Tx) error) error {
	tx, err := db.Begin(ctx)
	if err != nil {
		return gerrors.Wrap(err, "begin transaction")
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return errors.Join(err, gerrors.Wrap(rbErr, "rollback"))
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return gerrors.Wrap(err, "commit")
	}
	return nil
}
