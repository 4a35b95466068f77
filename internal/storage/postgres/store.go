// Package postgres provides the pgx-backed store for the treasury ledger.
//
// Migrations that create the expected schema live under db/migrations. This
// package maps between ledger entities and SQL rows and runs the statements
// and transactions the services need. Operations running inside
// WithPeriodLock share its transaction through the context.
package postgres

import (
	"context"
	"errors"
	"sort"

	"github.com/govalues/decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tinoosan/treasury/internal/errs"
	"github.com/tinoosan/treasury/internal/ledger"
)

// lockNamespace is the first key of every period advisory lock.
const lockNamespace int32 = 0x5452

// Store holds a pgx connection pool and implements the read/write interfaces
// used across the service layer. All methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// Open establishes a pgx pool using the provided connection string.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ready pings the pool to verify connectivity.
func (s *Store) Ready(ctx context.Context) error { return s.pool.Ping(ctx) }

// Migrate executes a schema script such as db/migrations/0001_init.sql.
func (s *Store) Migrate(ctx context.Context, script string) error {
	_, err := s.pool.Exec(ctx, script)
	return err
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type txKey struct{}

// q returns the transaction started by WithPeriodLock, or the pool.
func (s *Store) q(ctx context.Context) querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return s.pool
}

// WithPeriodLock runs fn in a transaction holding a transaction-scoped
// advisory lock per month. Locks are taken in month order so concurrent
// callers cannot deadlock. A nested call joins the outer transaction.
func (s *Store) WithPeriodLock(ctx context.Context, periods []ledger.Period, fn func(ctx context.Context) error) error {
	keys := make([]int, 0, len(periods))
	for _, p := range periods {
		keys = append(keys, p.Key())
	}
	sort.Ints(keys)

	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		if err := lockPeriods(ctx, tx, keys); err != nil {
			return err
		}
		return fn(ctx)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := lockPeriods(ctx, tx, keys); err != nil {
		return err
	}
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func lockPeriods(ctx context.Context, tx pgx.Tx, keys []int) error {
	for _, k := range keys {
		if _, err := tx.Exec(ctx, `select pg_advisory_xact_lock($1, $2)`, lockNamespace, int32(k)); err != nil {
			return err
		}
	}
	return nil
}

// mapErr turns unique violations into domain errors.
func mapErr(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return err
	}
	switch pgErr.ConstraintName {
	case "movements_number_key":
		return errs.Wrap(errs.KindDuplicateMovementNumber, err, "movement number is already in use")
	case "period_closures_year_month_key":
		return errs.Wrap(errs.KindAlreadyClosed, err, "period is already closed")
	default:
		return errs.Wrap(errs.KindConflict, err, "%s", pgErr.ConstraintName)
	}
}

func parseDecimal(s string) (decimal.Decimal, error) { return decimal.Parse(s) }

func parseNullDecimal(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.Parse(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func nullDecimal(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	v := d.String()
	return &v
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
