// Package postgres implements store.Store on PostgreSQL via pgx. The
// schema carries an exclusion constraint over (teacher_id, date,
// [start,end)) for as-scheduled slots, so an overlapping write is refused
// by the database even when no advisory conflict check was run.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/itsuki2003/todaibansou-admin/internal/store"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx, so every query
// below runs the same inside and outside a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool *pgxpool.Pool
	q    querier
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, q: pool}
}

// Atomic runs fn against a store bound to a single transaction.
func (s *Store) Atomic(ctx context.Context, fn func(store.Store) error) error {
	if _, nested := s.q.(pgx.Tx); nested {
		return fn(s)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&Store{pool: s.pool, q: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// exclusion_violation, raised by the no-double-booking constraint
const exclusionViolation = "23P01"

func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == exclusionViolation {
		return store.ErrOverlap
	}
	return fmt.Errorf("%s: %w", op, err)
}
