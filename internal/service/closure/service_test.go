package closure_test

import (
	"context"
	"errors"
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
	"github.com/tinoosan/treasury/internal/storage/memory"
)

// countingRepo records whether storage was consulted.
type countingRepo struct {
	closure.Repo
	calls int
}

func (c *countingRepo) ClosureByPeriod(ctx context.Context, p ledger.Period) (ledger.Closure, error) {
	c.calls++
	return c.Repo.ClosureByPeriod(ctx, p)
}

func movementOn(acc ledger.Account, day time.Time, dir ledger.Direction, amount string, status ledger.Status) ledger.Movement {
	ref := uuid.New()
	m := ledger.Movement{
		ID:        uuid.New(),
		Number:    "MOV-" + uuid.NewString()[:8],
		Date:      day,
		Direction: dir,
		AccountID: acc.ID,
		Amount:    decimal.MustParse(amount),
		Status:    status,
	}
	if dir == ledger.DirectionIncome {
		m.IncomeSourceID = &ref
	} else {
		m.ExpenseCategoryID = &ref
	}
	return m
}

func newService(t *testing.T) (closure.Service, *memory.Store, ledger.Account) {
	t.Helper()
	store := memory.New()
	acc := store.SeedDefaults(ledger.Account{Name: "Bancolombia", OpeningBalance: decimal.MustParse("100"), Active: true})
	now := time.Date(2025, 11, 5, 12, 0, 0, 0, time.UTC)
	svc := closure.New(store, store, store, store, closure.WithClock(func() time.Time { return now }))
	return svc, store, acc
}

func TestCloseMonthComputesBalances(t *testing.T) {
	svc, store, acc := newService(t)
	ctx := context.Background()
	day := func(m, d int) time.Time { return time.Date(2025, time.Month(m), d, 0, 0, 0, 0, time.UTC) }

	store.SeedMovement(movementOn(acc, day(9, 20), ledger.DirectionIncome, "400", ledger.StatusApproved))
	store.SeedMovement(movementOn(acc, day(9, 21), ledger.DirectionExpense, "50", ledger.StatusApproved))
	store.SeedMovement(movementOn(acc, day(9, 22), ledger.DirectionIncome, "9999", ledger.StatusDraft))
	store.SeedMovement(movementOn(acc, day(10, 1), ledger.DirectionIncome, "1000", ledger.StatusApproved))
	store.SeedMovement(movementOn(acc, day(10, 31), ledger.DirectionExpense, "300.50", ledger.StatusApproved))
	store.SeedMovement(movementOn(acc, day(10, 15), ledger.DirectionExpense, "70", ledger.StatusDraft))
	store.SeedMovement(movementOn(acc, day(11, 1), ledger.DirectionIncome, "5", ledger.StatusApproved))

	c, err := svc.CloseMonth(ctx, 2025, 10, "tesorera", " cierre octubre ")
	require.NoError(t, err)
	assert.Equal(t, ledger.Period{Year: 2025, Month: 10}, c.Period)
	assert.Zero(t, c.OpeningBalance.Cmp(decimal.MustParse("450")), c.OpeningBalance.String())
	assert.Zero(t, c.TotalIncome.Cmp(decimal.MustParse("1000")))
	assert.Zero(t, c.TotalExpense.Cmp(decimal.MustParse("300.50")))
	assert.Zero(t, c.ClosingBalance.Cmp(decimal.MustParse("1149.50")), c.ClosingBalance.String())
	assert.Equal(t, "tesorera", c.ClosedBy)
	assert.Equal(t, "cierre octubre", c.Notes)

	closed, err := svc.IsMonthClosed(ctx, 2025, 10)
	require.NoError(t, err)
	assert.True(t, closed)
	closed, err = svc.IsDateClosed(ctx, day(10, 15))
	require.NoError(t, err)
	assert.True(t, closed)
	closed, err = svc.IsDateClosed(ctx, day(11, 15))
	require.NoError(t, err)
	assert.False(t, closed)

	trail, err := store.AuditTrail(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, audit.ActionCloseMonth, trail[0].Action)
	assert.Equal(t, "2025", trail[0].NewValues["year"])
}

func TestCloseMonthTwiceIsRejected(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.CloseMonth(ctx, 2025, 4, "tesorera", "")
	require.NoError(t, err)
	_, err = svc.CloseMonth(ctx, 2025, 4, "tesorera", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrAlreadyClosed))

	list, err := svc.ListClosures(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCloseMonthInvalidMonthSkipsStorage(t *testing.T) {
	store := memory.New()
	repo := &countingRepo{Repo: store}
	svc := closure.New(repo, store, store, store)

	for _, month := range []int{0, 13} {
		_, err := svc.CloseMonth(context.Background(), 2025, month, "tesorera", "")
		require.Error(t, err)
		assert.ErrorIs(t, err, errs.ErrInvalidMonth)
	}
	assert.Zero(t, repo.calls)
}

func TestCloseMonthRequiresActor(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.CloseMonth(context.Background(), 2025, 4, "  ", "")
	assert.ErrorIs(t, err, errs.ErrInvalid)
}

func TestListAndLatestClosure(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, ok, err := svc.LatestClosure(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	for _, p := range []ledger.Period{{Year: 2024, Month: 12}, {Year: 2025, Month: 2}, {Year: 2025, Month: 1}} {
		_, err := svc.CloseMonth(ctx, p.Year, p.Month, "tesorera", "")
		require.NoError(t, err)
	}
	list, err := svc.ListClosures(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, ledger.Period{Year: 2025, Month: 2}, list[0].Period)
	assert.Equal(t, ledger.Period{Year: 2025, Month: 1}, list[1].Period)
	assert.Equal(t, ledger.Period{Year: 2024, Month: 12}, list[2].Period)

	latest, ok, err := svc.LatestClosure(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ledger.Period{Year: 2025, Month: 2}, latest.Period)
}
