package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tinoosan/treasury/internal/catalog"
	"github.com/tinoosan/treasury/internal/errs"
	"github.com/tinoosan/treasury/internal/ledger"
)

const accountColumns = `id, code, name, currency, opening_balance::text, active`

func scanAccount(row pgx.Row) (ledger.Account, error) {
	var a ledger.Account
	var opening string
	if err := row.Scan(&a.ID, &a.Code, &a.Name, &a.Currency, &opening, &a.Active); err != nil {
		return ledger.Account{}, err
	}
	d, err := parseDecimal(opening)
	if err != nil {
		return ledger.Account{}, err
	}
	a.OpeningBalance = d
	return a, nil
}

// AccountByID fetches a single account.
func (s *Store) AccountByID(ctx context.Context, id uuid.UUID) (ledger.Account, error) {
	a, err := scanAccount(s.q(ctx).QueryRow(ctx, `select `+accountColumns+` from accounts where id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Account{}, errs.ErrNotFound
	}
	return a, err
}

// AccountByCode fetches an account by its code, ignoring case.
func (s *Store) AccountByCode(ctx context.Context, code string) (ledger.Account, error) {
	a, err := scanAccount(s.q(ctx).QueryRow(ctx, `select `+accountColumns+` from accounts where upper(code) = upper($1)`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Account{}, errs.ErrNotFound
	}
	return a, err
}

// ListAccounts returns all accounts ordered by code.
func (s *Store) ListAccounts(ctx context.Context) ([]ledger.Account, error) {
	rows, err := s.q(ctx).Query(ctx, `select `+accountColumns+` from accounts order by code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListIncomeSources returns the income catalog ordered by code.
func (s *Store) ListIncomeSources(ctx context.Context) ([]ledger.IncomeSource, error) {
	rows, err := s.q(ctx).Query(ctx, `select id, code, name, active from income_sources order by code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.IncomeSource, 0)
	for rows.Next() {
		var i ledger.IncomeSource
		if err := rows.Scan(&i.ID, &i.Code, &i.Name, &i.Active); err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

// ListExpenseCategories returns the expense catalog ordered by code.
func (s *Store) ListExpenseCategories(ctx context.Context) ([]ledger.ExpenseCategory, error) {
	rows, err := s.q(ctx).Query(ctx, `select id, code, name, active from expense_categories order by code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.ExpenseCategory, 0)
	for rows.Next() {
		var e ledger.ExpenseCategory
		if err := rows.Scan(&e.ID, &e.Code, &e.Name, &e.Active); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SeedDefaults inserts the treasury account and the curated catalogs unless
// rows with the same codes already exist, and returns the stored account.
func (s *Store) SeedDefaults(ctx context.Context, account ledger.Account) (ledger.Account, error) {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	if account.Code == "" {
		account.Code = catalog.DefaultAccountCode
	}
	if account.Currency == "" {
		account.Currency = "COP"
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return ledger.Account{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		insert into accounts (id, code, name, currency, opening_balance, active)
		values ($1, $2, $3, $4, $5::text::numeric, $6)
		on conflict (code) do nothing
	`, account.ID, account.Code, account.Name, strings.ToUpper(account.Currency), account.OpeningBalance.String(), account.Active); err != nil {
		return ledger.Account{}, err
	}
	income, expense := catalog.Seed()
	for _, i := range income {
		if _, err := tx.Exec(ctx, `
			insert into income_sources (id, code, name, active) values ($1, $2, $3, $4)
			on conflict (code) do nothing
		`, i.ID, i.Code, i.Name, i.Active); err != nil {
			return ledger.Account{}, err
		}
	}
	for _, e := range expense {
		if _, err := tx.Exec(ctx, `
			insert into expense_categories (id, code, name, active) values ($1, $2, $3, $4)
			on conflict (code) do nothing
		`, e.ID, e.Code, e.Name, e.Active); err != nil {
			return ledger.Account{}, err
		}
	}
	stored, err := scanAccount(tx.QueryRow(ctx, `select `+accountColumns+` from accounts where code = $1`, account.Code))
	if err != nil {
		return ledger.Account{}, err
	}
	return stored, tx.Commit(ctx)
}
