package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/treasury/internal/audit"
	"github.com/tinoosan/treasury/internal/errs"
	"github.com/tinoosan/treasury/internal/ledger"
)

func movementFor(acc ledger.Account, number string, day time.Time) ledger.Movement {
	return ledger.Movement{
		ID:        uuid.New(),
		Number:    number,
		Date:      day,
		Direction: ledger.DirectionIncome,
		AccountID: acc.ID,
		Amount:    decimal.MustParse("10"),
		Status:    ledger.StatusApproved,
	}
}

func TestSeedDefaults(t *testing.T) {
	s := New()
	ctx := context.Background()
	acc := s.SeedDefaults(ledger.Account{Name: "Bancolombia"})
	assert.Equal(t, "BANCO-BCOL-001", acc.Code)
	assert.Equal(t, "COP", acc.Currency)

	got, err := s.AccountByCode(ctx, "banco-bcol-001")
	require.NoError(t, err)
	assert.Equal(t, acc.ID, got.ID)
	_, err = s.AccountByCode(ctx, "CAJA")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	income, err := s.ListIncomeSources(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, income)
	expense, err := s.ListExpenseCategories(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, expense)
}

func TestMovementUniqueness(t *testing.T) {
	s := New()
	ctx := context.Background()
	acc := s.SeedDefaults(ledger.Account{})
	day := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	a := movementFor(acc, "A-1", day)
	a.Import = &ledger.ImportProvenance{Fingerprint: "abc"}
	_, err := s.CreateMovement(ctx, a)
	require.NoError(t, err)

	_, err = s.CreateMovement(ctx, movementFor(acc, "A-1", day))
	assert.ErrorIs(t, err, errs.ErrDuplicateMovementNumber)

	b := movementFor(acc, "A-2", day)
	b.Import = &ledger.ImportProvenance{Fingerprint: "abc"}
	_, err = s.CreateMovement(ctx, b)
	assert.ErrorIs(t, err, errs.ErrConflict)

	ok, err := s.MovementExistsByFingerprint(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, ok)

	a.Number = "A-1B"
	_, err = s.UpdateMovement(ctx, a)
	require.NoError(t, err)
	ok, err = s.MovementNumberExists(ctx, "A-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.DeleteMovement(ctx, a.ID))
	ok, err = s.MovementExistsByFingerprint(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, s.DeleteMovement(ctx, a.ID), errs.ErrNotFound)
}

func TestListMovementsOrderAndLimit(t *testing.T) {
	s := New()
	ctx := context.Background()
	acc := s.SeedDefaults(ledger.Account{})
	d := func(n int) time.Time { return time.Date(2025, 3, n, 0, 0, 0, 0, time.UTC) }
	s.SeedMovement(movementFor(acc, "B", d(2)))
	s.SeedMovement(movementFor(acc, "A", d(2)))
	s.SeedMovement(movementFor(acc, "C", d(1)))

	all, err := s.ListMovements(ctx, ledger.MovementFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"C", "A", "B"}, []string{all[0].Number, all[1].Number, all[2].Number})

	two, err := s.ListMovements(ctx, ledger.MovementFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, two, 2)
}

func TestClosures(t *testing.T) {
	s := New()
	ctx := context.Background()
	p := ledger.Period{Year: 2025, Month: 1}

	_, err := s.ClosureByPeriod(ctx, p)
	assert.ErrorIs(t, err, errs.ErrNotFound)

	_, err = s.CreateClosure(ctx, ledger.Closure{ID: uuid.New(), Period: p})
	require.NoError(t, err)
	_, err = s.CreateClosure(ctx, ledger.Closure{ID: uuid.New(), Period: p})
	assert.ErrorIs(t, err, errs.ErrAlreadyClosed)

	_, err = s.CreateClosure(ctx, ledger.Closure{ID: uuid.New(), Period: ledger.Period{Year: 2025, Month: 2}})
	require.NoError(t, err)
	list, err := s.ListClosures(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 2, list[0].Period.Month)
}

func TestAuditTrailCopiesSnapshots(t *testing.T) {
	s := New()
	ctx := context.Background()
	id := uuid.New()
	snap := audit.Snapshot{"number": "A-1"}
	require.NoError(t, s.RecordAudit(ctx, audit.Entry{ID: uuid.New(), EntityID: id, Action: audit.ActionCreate, NewValues: snap}))
	snap["number"] = "changed"

	trail, err := s.AuditTrail(ctx, id)
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, "A-1", trail[0].NewValues["number"])

	other, err := s.AuditTrail(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestWithPeriodLockSerialises(t *testing.T) {
	s := New()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.WithPeriodLock(context.Background(), []ledger.Period{{Year: 2025, Month: 1}}, func(context.Context) error {
				mu.Lock()
				inside++
				if inside > maxSeen {
					maxSeen = inside
				}
				mu.Unlock()
				time.Sleep(time.Millisecond)
				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}
