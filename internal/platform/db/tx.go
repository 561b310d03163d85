package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WithTx runs fn inside a RepeatableRead transaction begun on pool and commits when fn
// returns nil. When current is already a transaction, fn joins it and the caller that
// opened it owns commit and rollback.
func WithTx(ctx context.Context, pool *pgxpool.Pool, current DBTX, fn func(DBTX) error) error {
	if tx, ok := current.(pgx.Tx); ok {
		return fn(tx)
	}
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("platform/db: commit tx: %w", err)
	}
	return nil
}
