// Package closure keeps the append-only ledger of closed accounting months.
package closure

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"

	"github.com/tinoosan/treasury/internal/audit"
	"github.com/tinoosan/treasury/internal/errs"
	"github.com/tinoosan/treasury/internal/ledger"
	"github.com/tinoosan/treasury/internal/metrics"
)

// Repo defines read operations needed by the service.
type Repo interface {
	ClosureByPeriod(ctx context.Context, p ledger.Period) (ledger.Closure, error)
	ListClosures(ctx context.Context) ([]ledger.Closure, error)
	ListAccounts(ctx context.Context) ([]ledger.Account, error)
	ListMovements(ctx context.Context, f ledger.MovementFilter) ([]ledger.Movement, error)
}

// Writer defines write operations needed by the service. There is no
// update or delete: closures are permanent.
type Writer interface {
	CreateClosure(ctx context.Context, c ledger.Closure) (ledger.Closure, error)
}

// PeriodLocker runs fn while holding exclusive locks on the given months.
type PeriodLocker interface {
	WithPeriodLock(ctx context.Context, periods []ledger.Period, fn func(ctx context.Context) error) error
}

// Service answers "is this month closed" and closes months.
type Service interface {
	IsMonthClosed(ctx context.Context, year, month int) (bool, error)
	IsDateClosed(ctx context.Context, t time.Time) (bool, error)
	CloseMonth(ctx context.Context, year, month int, actor, notes string) (ledger.Closure, error)
	ListClosures(ctx context.Context) ([]ledger.Closure, error)
	LatestClosure(ctx context.Context) (ledger.Closure, bool, error)
}

type service struct {
	repo   Repo
	writer Writer
	locker PeriodLocker
	trail  audit.Recorder
	log    *slog.Logger
	now    func() time.Time
}

// Option customises a Service.
type Option func(*service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(s *service) { s.now = now } }

// WithLogger sets the logger; slog.Default is used otherwise.
func WithLogger(l *slog.Logger) Option { return func(s *service) { s.log = l } }

func New(repo Repo, writer Writer, locker PeriodLocker, trail audit.Recorder, opts ...Option) Service {
	s := &service{repo: repo, writer: writer, locker: locker, trail: trail, log: slog.Default(), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *service) IsMonthClosed(ctx context.Context, year, month int) (bool, error) {
	p := ledger.Period{Year: year, Month: month}
	if !p.Valid() {
		return false, errs.InvalidMonth(month)
	}
	_, err := s.repo.ClosureByPeriod(ctx, p)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errs.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (s *service) IsDateClosed(ctx context.Context, t time.Time) (bool, error) {
	p := ledger.PeriodOf(t)
	return s.IsMonthClosed(ctx, p.Year, p.Month)
}

// CloseMonth rejects an invalid month before touching storage, then checks
// for an existing closure, computes the month's balances from approved
// movements and stores the closure, all under the month's period lock.
func (s *service) CloseMonth(ctx context.Context, year, month int, actor, notes string) (out ledger.Closure, err error) {
	defer func() { metrics.PeriodClosures.WithLabelValues(metrics.Result(string(errs.KindOf(err)), err)).Inc() }()

	p := ledger.Period{Year: year, Month: month}
	if !p.Valid() {
		return ledger.Closure{}, errs.InvalidMonth(month)
	}
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ledger.Closure{}, errs.New(errs.KindInvalid, "actor is required")
	}

	err = s.locker.WithPeriodLock(ctx, []ledger.Period{p}, func(ctx context.Context) error {
		if _, err := s.repo.ClosureByPeriod(ctx, p); err == nil {
			return errs.New(errs.KindAlreadyClosed, "period %s is already closed", p)
		} else if !errors.Is(err, errs.ErrNotFound) {
			return err
		}

		c, err := s.compute(ctx, p)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		c.ID = uuid.New()
		c.ClosedAt, c.ClosedBy = now, actor
		c.CreatedAt, c.CreatedBy = now, actor
		c.Notes = strings.TrimSpace(notes)

		created, err := s.writer.CreateClosure(ctx, c)
		if err != nil {
			return err
		}
		if err := s.trail.RecordAudit(ctx, audit.Entry{
			ID:         uuid.New(),
			EntityType: audit.EntityClosure,
			EntityID:   created.ID,
			Action:     audit.ActionCloseMonth,
			Actor:      actor,
			NewValues:  audit.ClosureSnapshot(created),
			Note:       created.Notes,
			At:         now,
		}); err != nil {
			return err
		}
		out = created
		return nil
	})
	if err != nil {
		return ledger.Closure{}, err
	}
	s.log.Info("period closed", "period", p.String(), "actor", actor,
		"opening", out.OpeningBalance.String(), "closing", out.ClosingBalance.String())
	return out, nil
}

func (s *service) compute(ctx context.Context, p ledger.Period) (ledger.Closure, error) {
	accounts, err := s.repo.ListAccounts(ctx)
	if err != nil {
		return ledger.Closure{}, err
	}
	opening := decimal.Zero
	for _, a := range accounts {
		if !a.Active {
			continue
		}
		if opening, err = opening.Add(a.OpeningBalance); err != nil {
			return ledger.Closure{}, err
		}
	}

	start, end := p.Start(), p.End()
	before, err := s.repo.ListMovements(ctx, ledger.MovementFilter{To: &start, Status: ledger.StatusApproved})
	if err != nil {
		return ledger.Closure{}, err
	}
	for _, m := range before {
		if opening, err = ledger.Apply(opening, m); err != nil {
			return ledger.Closure{}, err
		}
	}

	during, err := s.repo.ListMovements(ctx, ledger.MovementFilter{From: &start, To: &end, Status: ledger.StatusApproved})
	if err != nil {
		return ledger.Closure{}, err
	}
	income, expense, err := ledger.Totals(during)
	if err != nil {
		return ledger.Closure{}, err
	}
	closing, err := opening.Add(income)
	if err == nil {
		closing, err = closing.Sub(expense)
	}
	if err != nil {
		return ledger.Closure{}, err
	}
	return ledger.Closure{
		Period:         p,
		OpeningBalance: opening,
		TotalIncome:    income,
		TotalExpense:   expense,
		ClosingBalance: closing,
	}, nil
}

func (s *service) ListClosures(ctx context.Context) ([]ledger.Closure, error) {
	cs, err := s.repo.ListClosures(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(cs, func(i, j int) bool { return cs[j].Period.Before(cs[i].Period) })
	return cs, nil
}

func (s *service) LatestClosure(ctx context.Context) (ledger.Closure, bool, error) {
	cs, err := s.ListClosures(ctx)
	if err != nil || len(cs) == 0 {
		return ledger.Closure{}, false, err
	}
	return cs[0], true, nil
}
