package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/tinoosan/treasury/internal/errs"
	"github.com/tinoosan/treasury/internal/ledger"
)

const closureColumns = `id, year, month, closed_at, closed_by,
	opening_balance::text, total_income::text, total_expense::text, closing_balance::text,
	notes, created_at, created_by`

func scanClosure(row pgx.Row) (ledger.Closure, error) {
	var (
		c                                 ledger.Closure
		opening, income, expense, closing string
	)
	if err := row.Scan(&c.ID, &c.Period.Year, &c.Period.Month, &c.ClosedAt, &c.ClosedBy,
		&opening, &income, &expense, &closing, &c.Notes, &c.CreatedAt, &c.CreatedBy); err != nil {
		return ledger.Closure{}, err
	}
	var err error
	if c.OpeningBalance, err = parseDecimal(opening); err != nil {
		return ledger.Closure{}, err
	}
	if c.TotalIncome, err = parseDecimal(income); err != nil {
		return ledger.Closure{}, err
	}
	if c.TotalExpense, err = parseDecimal(expense); err != nil {
		return ledger.Closure{}, err
	}
	if c.ClosingBalance, err = parseDecimal(closing); err != nil {
		return ledger.Closure{}, err
	}
	c.ClosedAt, c.CreatedAt = c.ClosedAt.UTC(), c.CreatedAt.UTC()
	return c, nil
}

// ClosureByPeriod returns the closure for a month or a not_found error.
func (s *Store) ClosureByPeriod(ctx context.Context, p ledger.Period) (ledger.Closure, error) {
	c, err := scanClosure(s.q(ctx).QueryRow(ctx, `select `+closureColumns+` from period_closures where year = $1 and month = $2`, p.Year, p.Month))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Closure{}, errs.New(errs.KindNotFound, "no closure for %s", p)
	}
	return c, err
}

// ListClosures returns closures newest month first.
func (s *Store) ListClosures(ctx context.Context) ([]ledger.Closure, error) {
	rows, err := s.q(ctx).Query(ctx, `select `+closureColumns+` from period_closures order by year desc, month desc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Closure, 0)
	for rows.Next() {
		c, err := scanClosure(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CreateClosure inserts a closure; a second closure for the same month is already_closed.
func (s *Store) CreateClosure(ctx context.Context, c ledger.Closure) (ledger.Closure, error) {
	_, err := s.q(ctx).Exec(ctx, `
		insert into period_closures (id, year, month, closed_at, closed_by,
			opening_balance, total_income, total_expense, closing_balance, notes, created_at, created_by)
		values ($1,$2,$3,$4,$5,$6::text::numeric,$7::text::numeric,$8::text::numeric,$9::text::numeric,$10,$11,$12)
	`, c.ID, c.Period.Year, c.Period.Month, c.ClosedAt, c.ClosedBy,
		c.OpeningBalance.String(), c.TotalIncome.String(), c.TotalExpense.String(), c.ClosingBalance.String(),
		c.Notes, c.CreatedAt, c.CreatedBy)
	if err != nil {
		return ledger.Closure{}, mapErr(err)
	}
	return c, nil
}
