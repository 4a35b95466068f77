package movement_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/treasury/internal/audit"
	"github.com/tinoosan/treasury/internal/errs"
	"github.com/tinoosan/treasury/internal/ledger"
	"github.com/tinoosan/treasury/internal/service/closure"
	"github.com/tinoosan/treasury/internal/service/movement"
	"github.com/tinoosan/treasury/internal/storage/memory"
)

type fixture struct {
	svc       movement.Service
	closure   closure.Service
	store     *memory.Store
	account   ledger.Account
	incomeID  uuid.UUID
	expenseID uuid.UUID
}

func setup(t *testing.T) fixture {
	t.Helper()
	store := memory.New()
	acc := store.SeedDefaults(ledger.Account{Name: "Bancolombia", Active: true})
	incomes, err := store.ListIncomeSources(context.Background())
	require.NoError(t, err)
	expenses, err := store.ListExpenseCategories(context.Background())
	require.NoError(t, err)

	now := func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	cl := closure.New(store, store, store, store, closure.WithClock(now))
	svc := movement.New(store, store, cl, store, store, movement.WithClock(now))
	return fixture{svc: svc, closure: cl, store: store, account: acc, incomeID: incomes[0].ID, expenseID: expenses[0].ID}
}

func (f fixture) income(number string, day time.Time) ledger.Movement {
	src := f.incomeID
	return ledger.Movement{
		Number:         number,
		Date:           day,
		Direction:      ledger.DirectionIncome,
		AccountID:      f.account.ID,
		IncomeSourceID: &src,
		Amount:         decimal.MustParse("150000.00"),
		Description:    "Aporte mensual miembro 12345",
		Medium:         ledger.MediumCash,
		Status:         ledger.StatusApproved,
	}
}

func date(y, m, d int) time.Time { return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC) }

func TestCreateStampsAndAudits(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	m, err := f.svc.Create(ctx, f.income("MOV-001", date(2026, 1, 15)), "ana")
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, m.ID)
	assert.Equal(t, "ana", m.CreatedBy)
	require.NotNil(t, m.ApprovedAt)
	assert.Equal(t, "ana", m.ApprovedBy)

	trail, err := f.store.AuditTrail(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, audit.ActionCreate, trail[0].Action)
	assert.Equal(t, "MOV-001", trail[0].NewValues["number"])
}

func TestCreateValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.income("  ", date(2026, 1, 15)), "ana")
	assert.ErrorIs(t, err, errs.ErrInvalid)

	_, err = f.svc.Create(ctx, f.income("MOV-001", date(2026, 1, 15)), "")
	assert.ErrorIs(t, err, errs.ErrInvalid)

	bad := f.income("MOV-002", date(2026, 1, 15))
	exp := f.expenseID
	bad.ExpenseCategoryID = &exp
	_, err = f.svc.Create(ctx, bad, "ana")
	assert.ErrorIs(t, err, errs.ErrInvalid)

	unknown := f.income("MOV-003", date(2026, 1, 15))
	unknown.AccountID = uuid.New()
	_, err = f.svc.Create(ctx, unknown, "ana")
	assert.ErrorIs(t, err, errs.ErrInvalid)

	_, err = f.svc.Create(ctx, f.income("MOV-004", date(2026, 1, 15)), "ana")
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.income("MOV-004", date(2026, 1, 16)), "ana")
	assert.ErrorIs(t, err, errs.ErrDuplicateMovementNumber)
}

func TestClosedPeriodRejectsEveryMutation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	existing, err := f.svc.Create(ctx, f.income("MOV-100", date(2025, 10, 15)), "ana")
	require.NoError(t, err)
	_, err = f.closure.CloseMonth(ctx, 2025, 10, "tesorera", "")
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, f.income("MOV-101", date(2025, 10, 15)), "ana")
	require.ErrorIs(t, err, errs.ErrClosedPeriod)
	assert.Contains(t, err.Error(), "2025-10")

	desc := "editado"
	_, err = f.svc.Update(ctx, existing.ID, movement.Changes{Description: &desc}, "ana")
	assert.ErrorIs(t, err, errs.ErrClosedPeriod)

	_, err = f.svc.Void(ctx, existing.ID, "duplicado", "ana")
	assert.ErrorIs(t, err, errs.ErrClosedPeriod)

	err = f.svc.Delete(ctx, existing.ID, "ana")
	assert.ErrorIs(t, err, errs.ErrClosedPeriod)

	stored, err := f.store.MovementByID(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, existing, stored)
	exists, err := f.store.MovementNumberExists(ctx, "MOV-101")
	require.NoError(t, err)
	assert.False(t, exists)

	trail, err := f.store.AuditTrail(ctx, existing.ID)
	require.NoError(t, err)
	assert.Len(t, trail, 1, "only the original create is audited")
}

func TestUpdateIntoClosedMonth(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	m, err := f.svc.Create(ctx, f.income("MOV-200", date(2026, 1, 15)), "ana")
	require.NoError(t, err)
	_, err = f.closure.CloseMonth(ctx, 2026, 2, "tesorera", "")
	require.NoError(t, err)

	moved := date(2026, 2, 10)
	_, err = f.svc.Update(ctx, m.ID, movement.Changes{Date: &moved}, "ana")
	require.ErrorIs(t, err, errs.ErrClosedPeriod)
	assert.Contains(t, err.Error(), "2026-02")

	stored, err := f.store.MovementByID(ctx, m.ID)
	require.NoError(t, err)
	assert.True(t, stored.Date.Equal(date(2026, 1, 15)))
}

func TestUpdateAppliesChanges(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	m, err := f.svc.Create(ctx, f.income("MOV-300", date(2026, 1, 15)), "ana")
	require.NoError(t, err)

	amount := decimal.MustParse("175000.00")
	number := "MOV-300B"
	dir := ledger.DirectionExpense
	exp := f.expenseID
	got, err := f.svc.Update(ctx, m.ID, movement.Changes{
		Number:            &number,
		Amount:            &amount,
		Direction:         &dir,
		ExpenseCategoryID: &exp,
	}, "luis")
	require.NoError(t, err)
	assert.Equal(t, "MOV-300B", got.Number)
	assert.Equal(t, ledger.DirectionExpense, got.Direction)
	assert.Nil(t, got.IncomeSourceID)
	require.NotNil(t, got.UpdatedAt)
	assert.Equal(t, "luis", got.UpdatedBy)

	exists, err := f.store.MovementNumberExists(ctx, "MOV-300")
	require.NoError(t, err)
	assert.False(t, exists)

	trail, err := f.store.AuditTrail(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, audit.ActionUpdate, trail[1].Action)
	assert.Equal(t, []string{"amount", "direction", "expense_category_id", "income_source_id", "number"},
		audit.Changed(trail[1].OldValues, trail[1].NewValues))
}

func TestUpdateRules(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	a, err := f.svc.Create(ctx, f.income("MOV-400", date(2026, 1, 15)), "ana")
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.income("MOV-401", date(2026, 1, 16)), "ana")
	require.NoError(t, err)

	taken := "MOV-401"
	_, err = f.svc.Update(ctx, a.ID, movement.Changes{Number: &taken}, "ana")
	assert.ErrorIs(t, err, errs.ErrDuplicateMovementNumber)

	void := ledger.StatusVoid
	_, err = f.svc.Update(ctx, a.ID, movement.Changes{Status: &void}, "ana")
	assert.ErrorIs(t, err, errs.ErrInvalid)

	_, err = f.svc.Update(ctx, uuid.New(), movement.Changes{}, "ana")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = f.svc.Void(ctx, a.ID, "error de digitación", "ana")
	require.NoError(t, err)
	desc := "otra"
	_, err = f.svc.Update(ctx, a.ID, movement.Changes{Description: &desc}, "ana")
	assert.ErrorIs(t, err, errs.ErrAlreadyVoid)
}

func TestVoid(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	m, err := f.svc.Create(ctx, f.income("MOV-500", date(2026, 1, 15)), "ana")
	require.NoError(t, err)

	_, err = f.svc.Void(ctx, m.ID, " ", "ana")
	assert.ErrorIs(t, err, errs.ErrInvalid)

	v, err := f.svc.Void(ctx, m.ID, "duplicado", "luis")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusVoid, v.Status)
	require.NotNil(t, v.Void)
	assert.Equal(t, "duplicado", v.Void.Reason)
	assert.Equal(t, "luis", v.Void.By)
	assert.False(t, v.CountsTowardBalance())

	_, err = f.svc.Void(ctx, m.ID, "otra vez", "luis")
	assert.ErrorIs(t, err, errs.ErrAlreadyVoid)

	_, err = f.svc.Void(ctx, uuid.New(), "x", "luis")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestDelete(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	m, err := f.svc.Create(ctx, f.income("MOV-600", date(2026, 1, 15)), "ana")
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, m.ID, "ana"))

	_, err = f.svc.Get(ctx, m.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	trail, err := f.store.AuditTrail(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, audit.ActionDelete, trail[1].Action)
	assert.True(t, trail[1].Destructive)

	assert.ErrorIs(t, f.svc.Delete(ctx, m.ID, "ana"), errs.ErrNotFound)
}

func TestList(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	for i, d := range []time.Time{date(2026, 1, 20), date(2026, 1, 5), date(2026, 2, 1)} {
		_, err := f.svc.Create(ctx, f.income("MOV-70"+string(rune('0'+i)), d), "ana")
		require.NoError(t, err)
	}
	from, to := date(2026, 1, 1), date(2026, 2, 1)
	list, err := f.svc.List(ctx, ledger.MovementFilter{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "MOV-701", list[0].Number)
	assert.Equal(t, "MOV-700", list[1].Number)
}

// racingLocker moves the movement to another month after the caller read it
// and before the locked callback runs, the way a concurrent update would.
type racingLocker struct {
	movement.PeriodLocker
	store *memory.Store
	moved ledger.Movement
}

func (r racingLocker) WithPeriodLock(ctx context.Context, periods []ledger.Period, fn func(context.Context) error) error {
	r.store.SeedMovement(r.moved)
	return r.PeriodLocker.WithPeriodLock(ctx, periods, fn)
}

func TestMutationsConflictWhenMovementChangesMonth(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	m, err := f.svc.Create(ctx, f.income("MOV-700", date(2026, 1, 15)), "ana")
	require.NoError(t, err)
	moved := m
	moved.Date = date(2026, 2, 3)

	now := func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }
	racing := movement.New(f.store, f.store, f.closure, racingLocker{PeriodLocker: f.store, store: f.store, moved: moved}, f.store,
		movement.WithClock(now))

	desc := "editado"
	_, err = racing.Update(ctx, m.ID, movement.Changes{Description: &desc}, "ana")
	assert.ErrorIs(t, err, errs.ErrConflict)

	f.store.SeedMovement(m)
	_, err = racing.Void(ctx, m.ID, "duplicado", "ana")
	assert.ErrorIs(t, err, errs.ErrConflict)

	f.store.SeedMovement(m)
	assert.ErrorIs(t, racing.Delete(ctx, m.ID, "ana"), errs.ErrConflict)

	got, err := f.svc.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusApproved, got.Status)
	assert.Equal(t, "Aporte mensual miembro 12345", got.Description)

	// Locking the month the movement now lives in lets the update through.
	feb := date(2026, 2, 20)
	updated, err := racing.Update(ctx, m.ID, movement.Changes{Date: &feb}, "ana")
	require.NoError(t, err)
	assert.Equal(t, feb, updated.Date)
}

func TestDatesAreStoredAsUTCCalendarDays(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	bogota := time.FixedZone("COT", -5*3600)

	m, err := f.svc.Create(ctx, f.income("MOV-800", time.Date(2025, 10, 31, 22, 0, 0, 0, bogota)), "ana")
	require.NoError(t, err)
	assert.Equal(t, date(2025, 10, 31), m.Date)
	assert.Equal(t, ledger.Period{Year: 2025, Month: 10}, m.Period())

	_, err = f.closure.CloseMonth(ctx, 2025, 10, "tesorera", "")
	require.NoError(t, err)

	oct := ledger.Period{Year: 2025, Month: 10}
	from, to := oct.Start(), oct.End()
	got, err := f.svc.List(ctx, ledger.MovementFilter{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, got, 1)

	_, err = f.svc.Void(ctx, m.ID, "error", "ana")
	assert.ErrorIs(t, err, errs.ErrClosedPeriod)

	_, err = f.svc.Create(ctx, f.income("MOV-801", time.Date(2025, 10, 31, 23, 30, 0, 0, bogota)), "ana")
	assert.ErrorIs(t, err, errs.ErrClosedPeriod)

	open, err := f.svc.Create(ctx, f.income("MOV-802", date(2025, 11, 2)), "ana")
	require.NoError(t, err)
	late := time.Date(2025, 11, 30, 21, 0, 0, 0, bogota)
	updated, err := f.svc.Update(ctx, open.ID, movement.Changes{Date: &late}, "ana")
	require.NoError(t, err)
	assert.Equal(t, date(2025, 11, 30), updated.Date)
}
