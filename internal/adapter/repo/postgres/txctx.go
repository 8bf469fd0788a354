package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/neptunehub/campus-errand-engine/internal/domain"
)

// Querier is the subset of PgxPool/pgx.Tx every repo method needs to run a
// statement, so the same code path works whether or not ctx carries an
// active transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type txCtxKey struct{}

// withTx installs tx into ctx so nested repo calls made against the
// returned context reuse it instead of opening their own.
func withTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txCtxKey{}, tx)
}

func txFromContext(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txCtxKey{}).(pgx.Tx)
	return tx, ok
}

// querier returns ctx's active transaction if Store.WithTx installed one,
// else falls back to pool, so a plain repo method participates correctly in
// an externally-supplied transaction without needing a BeginTx of its own.
func querier(ctx context.Context, pool PgxPool) Querier {
	if tx, ok := txFromContext(ctx); ok {
		return tx
	}
	return pool
}

// runInTx runs fn against ctx's active transaction if one is already
// installed, skipping a nested BeginTx. Otherwise it begins and commits its
// own transaction around fn exactly as a standalone call would, following
// the same begin/deferred-rollback-unless-committed/commit shape every
// self-transactional repo method in this package uses.
func runInTx(ctx context.Context, pool PgxPool, fn func(ctx context.Context, tx pgx.Tx) error) error {
	if tx, ok := txFromContext(ctx); ok {
		return fn(ctx, tx)
	}

	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("op=run_in_tx.begin_tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("op=run_in_tx.commit: %w", err)
	}
	committed = true
	return nil
}

// Store implements domain.Store on top of a pgx pool: WithTx begins one
// transaction, installs it into ctx, and runs fn against it. Any error fn
// returns rolls back every write made through that ctx.
type Store struct{ Pool PgxPool }

// NewStore constructs a Store with the given pool.
func NewStore(p PgxPool) *Store { return &Store{Pool: p} }

var _ domain.Store = (*Store)(nil)

// WithTx implements domain.Store.
func (s *Store) WithTx(ctx domain.Context, fn func(ctx domain.Context) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("op=store.with_tx.begin_tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	if err := fn(withTx(ctx, tx)); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("op=store.with_tx.commit: %w", err)
	}
	committed = true
	return nil
}
