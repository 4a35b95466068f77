package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tinoosan/treasury/internal/errs"
	"github.com/tinoosan/treasury/internal/ledger"
)

const movementColumns = `id, number, date, direction, account_id, income_source_id, expense_category_id,
	amount::text, description, medium, status,
	created_at, created_by, updated_at, updated_by, approved_at, approved_by,
	void_reason, voided_at, voided_by,
	import_fingerprint, import_source_file, import_sheet, import_row, imported_at,
	declared_balance::text, balance_mismatch, observed_balance::text`

func scanMovement(row pgx.Row) (ledger.Movement, error) {
	var (
		m                              ledger.Movement
		amount                         string
		updatedBy, approvedBy          *string
		voidReason, voidedBy           *string
		voidedAt                       *time.Time
		fingerprint, sourceFile, sheet *string
		importRow                      *int32
		importedAt                     *time.Time
		declared, observed             *string
		mismatch                       bool
	)
	if err := row.Scan(&m.ID, &m.Number, &m.Date, &m.Direction, &m.AccountID, &m.IncomeSourceID, &m.ExpenseCategoryID,
		&amount, &m.Description, &m.Medium, &m.Status,
		&m.CreatedAt, &m.CreatedBy, &m.UpdatedAt, &updatedBy, &m.ApprovedAt, &approvedBy,
		&voidReason, &voidedAt, &voidedBy,
		&fingerprint, &sourceFile, &sheet, &importRow, &importedAt,
		&declared, &mismatch, &observed); err != nil {
		return ledger.Movement{}, err
	}
	var err error
	if m.Amount, err = parseDecimal(amount); err != nil {
		return ledger.Movement{}, err
	}
	m.Date = time.Date(m.Date.Year(), m.Date.Month(), m.Date.Day(), 0, 0, 0, 0, time.UTC)
	m.CreatedAt = m.CreatedAt.UTC()
	m.UpdatedAt = utc(m.UpdatedAt)
	m.ApprovedAt = utc(m.ApprovedAt)
	m.UpdatedBy, m.ApprovedBy = deref(updatedBy), deref(approvedBy)
	if voidReason != nil && voidedAt != nil {
		m.Void = &ledger.VoidInfo{Reason: *voidReason, At: voidedAt.UTC(), By: deref(voidedBy)}
	}
	if fingerprint != nil {
		p := &ledger.ImportProvenance{
			Fingerprint:     *fingerprint,
			SourceFile:      deref(sourceFile),
			Sheet:           deref(sheet),
			BalanceMismatch: mismatch,
		}
		if importRow != nil {
			p.Row = int(*importRow)
		}
		if importedAt != nil {
			p.ImportedAt = importedAt.UTC()
		}
		if p.DeclaredBalance, err = parseNullDecimal(declared); err != nil {
			return ledger.Movement{}, err
		}
		if p.ObservedBalance, err = parseNullDecimal(observed); err != nil {
			return ledger.Movement{}, err
		}
		m.Import = p
	}
	return m, nil
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// MovementByID fetches a single movement.
func (s *Store) MovementByID(ctx context.Context, id uuid.UUID) (ledger.Movement, error) {
	m, err := scanMovement(s.q(ctx).QueryRow(ctx, `select `+movementColumns+` from movements where id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Movement{}, errs.New(errs.KindNotFound, "movement %s not found", id)
	}
	return m, err
}

func (s *Store) MovementNumberExists(ctx context.Context, number string) (bool, error) {
	var ok bool
	err := s.q(ctx).QueryRow(ctx, `select exists(select 1 from movements where number = $1)`, number).Scan(&ok)
	return ok, err
}

func (s *Store) MovementExistsByFingerprint(ctx context.Context, fingerprint string) (bool, error) {
	var ok bool
	err := s.q(ctx).QueryRow(ctx, `select exists(select 1 from movements where import_fingerprint = $1)`, fingerprint).Scan(&ok)
	return ok, err
}

// ListMovements returns matches ordered by date then number.
func (s *Store) ListMovements(ctx context.Context, f ledger.MovementFilter) ([]ledger.Movement, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.From != nil {
		add("date >= $%d", *f.From)
	}
	if f.To != nil {
		add("date < $%d", *f.To)
	}
	if f.AccountID != nil {
		add("account_id = $%d", *f.AccountID)
	}
	if f.Direction != "" {
		add("direction = $%d", string(f.Direction))
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	sql := `select ` + movementColumns + ` from movements`
	if len(where) > 0 {
		sql += ` where ` + strings.Join(where, " and ")
	}
	sql += ` order by date, number`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		sql += fmt.Sprintf(` limit $%d`, len(args))
	}

	rows, err := s.q(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Movement, 0)
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// movementArgs lists values in the order of the insert and update statements.
func movementArgs(m ledger.Movement) []any {
	var (
		voidReason, voidedBy *string
		voidedAt             *time.Time
		fingerprint          *string
		sourceFile, sheet    *string
		importRow            *int32
		importedAt           *time.Time
		declared, observed   *string
		mismatch             bool
	)
	if m.Void != nil {
		voidReason, voidedBy = &m.Void.Reason, &m.Void.By
		voidedAt = &m.Void.At
	}
	if p := m.Import; p != nil {
		fingerprint = nullString(p.Fingerprint)
		sourceFile, sheet = nullString(p.SourceFile), nullString(p.Sheet)
		row := int32(p.Row)
		importRow = &row
		importedAt = &p.ImportedAt
		declared, observed = nullDecimal(p.DeclaredBalance), nullDecimal(p.ObservedBalance)
		mismatch = p.BalanceMismatch
	}
	return []any{
		m.ID, m.Number, m.Date, string(m.Direction), m.AccountID, m.IncomeSourceID, m.ExpenseCategoryID,
		m.Amount.String(), m.Description, string(m.Medium), string(m.Status),
		m.CreatedAt, m.CreatedBy, m.UpdatedAt, nullString(m.UpdatedBy), m.ApprovedAt, nullString(m.ApprovedBy),
		voidReason, voidedAt, voidedBy,
		fingerprint, sourceFile, sheet, importRow, importedAt,
		declared, mismatch, observed,
	}
}

// CreateMovement inserts a movement row.
func (s *Store) CreateMovement(ctx context.Context, m ledger.Movement) (ledger.Movement, error) {
	_, err := s.q(ctx).Exec(ctx, `
		insert into movements (id, number, date, direction, account_id, income_source_id, expense_category_id,
			amount, description, medium, status,
			created_at, created_by, updated_at, updated_by, approved_at, approved_by,
			void_reason, voided_at, voided_by,
			import_fingerprint, import_source_file, import_sheet, import_row, imported_at,
			declared_balance, balance_mismatch, observed_balance)
		values ($1,$2,$3,$4,$5,$6,$7,$8::text::numeric,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26::text::numeric,$27,$28::text::numeric)
	`, movementArgs(m)...)
	if err != nil {
		return ledger.Movement{}, mapErr(err)
	}
	return m, nil
}

// UpdateMovement rewrites every mutable column of the movement.
func (s *Store) UpdateMovement(ctx context.Context, m ledger.Movement) (ledger.Movement, error) {
	ct, err := s.q(ctx).Exec(ctx, `
		update movements set
			number=$2, date=$3, direction=$4, account_id=$5, income_source_id=$6, expense_category_id=$7,
			amount=$8::text::numeric, description=$9, medium=$10, status=$11,
			created_at=$12, created_by=$13, updated_at=$14, updated_by=$15, approved_at=$16, approved_by=$17,
			void_reason=$18, voided_at=$19, voided_by=$20,
			import_fingerprint=$21, import_source_file=$22, import_sheet=$23, import_row=$24, imported_at=$25,
			declared_balance=$26::text::numeric, balance_mismatch=$27, observed_balance=$28::text::numeric
		where id=$1
	`, movementArgs(m)...)
	if err != nil {
		return ledger.Movement{}, mapErr(err)
	}
	if ct.RowsAffected() == 0 {
		return ledger.Movement{}, errs.New(errs.KindNotFound, "movement %s not found", m.ID)
	}
	return m, nil
}

// DeleteMovement removes a movement row.
func (s *Store) DeleteMovement(ctx context.Context, id uuid.UUID) error {
	ct, err := s.q(ctx).Exec(ctx, `delete from movements where id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return errs.New(errs.KindNotFound, "movement %s not found", id)
	}
	return nil
}
