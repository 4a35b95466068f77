// Package movement is the only path through which treasury movements are
// created, edited, voided or removed. Every operation refuses to touch a
// month that has been closed.
package movement

import (
	"context"
	"errors"
	"log/slog"
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
	AccountByID(ctx context.Context, id uuid.UUID) (ledger.Account, error)
	MovementByID(ctx context.Context, id uuid.UUID) (ledger.Movement, error)
	MovementNumberExists(ctx context.Context, number string) (bool, error)
	ListMovements(ctx context.Context, f ledger.MovementFilter) ([]ledger.Movement, error)
}

// Writer defines write operations needed by the service.
type Writer interface {
	CreateMovement(ctx context.Context, m ledger.Movement) (ledger.Movement, error)
	UpdateMovement(ctx context.Context, m ledger.Movement) (ledger.Movement, error)
	DeleteMovement(ctx context.Context, id uuid.UUID) error
}

// Periods reports whether the month containing t is closed.
type Periods interface {
	IsDateClosed(ctx context.Context, t time.Time) (bool, error)
}

// PeriodLocker runs fn while holding exclusive locks on the given months.
type PeriodLocker interface {
	WithPeriodLock(ctx context.Context, periods []ledger.Period, fn func(ctx context.Context) error) error
}

// Changes is a partial update; nil fields are left alone.
type Changes struct {
	Number            *string
	Date              *time.Time
	Direction         *ledger.Direction
	AccountID         *uuid.UUID
	IncomeSourceID    *uuid.UUID
	ExpenseCategoryID *uuid.UUID
	Amount            *decimal.Decimal
	Description       *string
	Medium            *ledger.Medium
	Status            *ledger.Status
}

// Service guards movement mutations.
type Service interface {
	Create(ctx context.Context, m ledger.Movement, actor string) (ledger.Movement, error)
	Update(ctx context.Context, id uuid.UUID, ch Changes, actor string) (ledger.Movement, error)
	Void(ctx context.Context, id uuid.UUID, reason, actor string) (ledger.Movement, error)
	Delete(ctx context.Context, id uuid.UUID, actor string) error
	Get(ctx context.Context, id uuid.UUID) (ledger.Movement, error)
	List(ctx context.Context, f ledger.MovementFilter) ([]ledger.Movement, error)
}

type service struct {
	repo    Repo
	writer  Writer
	periods Periods
	locker  PeriodLocker
	trail   audit.Recorder
	log     *slog.Logger
	now     func() time.Time
}

// Option customises a Service.
type Option func(*service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(s *service) { s.now = now } }

// WithLogger sets the logger; slog.Default is used otherwise.
func WithLogger(l *slog.Logger) Option { return func(s *service) { s.log = l } }

func New(repo Repo, writer Writer, periods Periods, locker PeriodLocker, trail audit.Recorder, opts ...Option) Service {
	s := &service{repo: repo, writer: writer, periods: periods, locker: locker, trail: trail, log: slog.Default(), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

func observe(op string, err error) {
	metrics.MovementMutations.WithLabelValues(op, metrics.Result(string(errs.KindOf(err)), err)).Inc()
}

func requireActor(actor string) (string, error) {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return "", errs.New(errs.KindInvalid, "actor is required")
	}
	return actor, nil
}

// ensureOpen fails with a closed-period error naming the month of t.
func (s *service) ensureOpen(ctx context.Context, t time.Time) error {
	closed, err := s.periods.IsDateClosed(ctx, t)
	if err != nil {
		return err
	}
	if closed {
		return errs.ClosedPeriod(t.Year(), int(t.Month()))
	}
	return nil
}

func (s *service) ensureNumberFree(ctx context.Context, number string) error {
	exists, err := s.repo.MovementNumberExists(ctx, number)
	if err != nil {
		return err
	}
	if exists {
		return errs.New(errs.KindDuplicateMovementNumber, "movement number %q is already in use", number)
	}
	return nil
}

func (s *service) ensureAccount(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.AccountByID(ctx, id); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return errs.New(errs.KindInvalid, "account %s does not exist", id)
		}
		return err
	}
	return nil
}

// lockedMovement re-reads the movement under the period lock and fails with
// a conflict when it moved to a month outside the locked set in between.
func (s *service) lockedMovement(ctx context.Context, id uuid.UUID, locked []ledger.Period) (ledger.Movement, error) {
	m, err := s.repo.MovementByID(ctx, id)
	if err != nil {
		return ledger.Movement{}, err
	}
	if !m.Period().In(locked) {
		return ledger.Movement{}, errs.New(errs.KindConflict, "movement %s moved to %s concurrently; retry", m.Number, m.Period())
	}
	return m, nil
}

func (s *service) Create(ctx context.Context, m ledger.Movement, actor string) (out ledger.Movement, err error) {
	defer func() { observe("create", err) }()

	if actor, err = requireActor(actor); err != nil {
		return ledger.Movement{}, err
	}
	m.Number = strings.TrimSpace(m.Number)
	if m.Number == "" {
		return ledger.Movement{}, errs.New(errs.KindInvalid, "movement number is required")
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.Status == "" {
		m.Status = ledger.StatusDraft
	}
	if m.Status == ledger.StatusVoid {
		return ledger.Movement{}, errs.New(errs.KindInvalid, "movements cannot be created void")
	}
	m.Void = nil
	m.Date = ledger.DateOf(m.Date)
	if err := m.Validate(); err != nil {
		return ledger.Movement{}, err
	}
	if err := s.ensureAccount(ctx, m.AccountID); err != nil {
		return ledger.Movement{}, err
	}

	err = s.locker.WithPeriodLock(ctx, []ledger.Period{m.Period()}, func(ctx context.Context) error {
		if err := s.ensureNumberFree(ctx, m.Number); err != nil {
			return err
		}
		if err := s.ensureOpen(ctx, m.Date); err != nil {
			return err
		}
		now := s.now().UTC()
		m.CreatedAt, m.CreatedBy = now, actor
		m.UpdatedAt, m.UpdatedBy = nil, ""
		m.ApprovedAt, m.ApprovedBy = nil, ""
		if m.Status == ledger.StatusApproved {
			m.ApprovedAt, m.ApprovedBy = &now, actor
		}
		created, err := s.writer.CreateMovement(ctx, m)
		if err != nil {
			return err
		}
		out = created
		return s.trail.RecordAudit(ctx, audit.Entry{
			ID:         uuid.New(),
			EntityType: audit.EntityMovement,
			EntityID:   created.ID,
			Action:     audit.ActionCreate,
			Actor:      actor,
			NewValues:  audit.MovementSnapshot(created),
			At:         now,
		})
	})
	if err != nil {
		return ledger.Movement{}, err
	}
	s.log.Info("movement created", "movement_id", out.ID, "number", out.Number, "period", out.Period().String())
	return out, nil
}

// Update checks the original month and, when the date moves, the target
// month too. Void movements are frozen and status cannot be set to void here.
func (s *service) Update(ctx context.Context, id uuid.UUID, ch Changes, actor string) (out ledger.Movement, err error) {
	defer func() { observe("update", err) }()

	if actor, err = requireActor(actor); err != nil {
		return ledger.Movement{}, err
	}
	if ch.Date != nil {
		d := ledger.DateOf(*ch.Date)
		ch.Date = &d
	}
	current, err := s.repo.MovementByID(ctx, id)
	if err != nil {
		return ledger.Movement{}, err
	}
	periods := []ledger.Period{current.Period()}
	if ch.Date != nil {
		periods = ledger.UniquePeriods(current.Date, *ch.Date)
	}

	err = s.locker.WithPeriodLock(ctx, periods, func(ctx context.Context) error {
		before, err := s.lockedMovement(ctx, id, periods)
		if err != nil {
			return err
		}
		if err := s.ensureOpen(ctx, before.Date); err != nil {
			return err
		}
		if ch.Date != nil && !ch.Date.Equal(before.Date) {
			if err := s.ensureOpen(ctx, *ch.Date); err != nil {
				return err
			}
		}
		if before.Status == ledger.StatusVoid {
			return errs.New(errs.KindAlreadyVoid, "movement %s is void and cannot be edited", before.Number)
		}
		if ch.Status != nil && *ch.Status == ledger.StatusVoid {
			return errs.New(errs.KindInvalid, "use void to cancel a movement")
		}
		if ch.Number != nil {
			n := strings.TrimSpace(*ch.Number)
			if n == "" {
				return errs.New(errs.KindInvalid, "movement number is required")
			}
			if n != before.Number {
				if err := s.ensureNumberFree(ctx, n); err != nil {
					return err
				}
			}
			ch.Number = &n
		}
		if ch.AccountID != nil && *ch.AccountID != before.AccountID {
			if err := s.ensureAccount(ctx, *ch.AccountID); err != nil {
				return err
			}
		}

		now := s.now().UTC()
		after := apply(before, ch, actor, now)
		if err := after.Validate(); err != nil {
			return err
		}
		updated, err := s.writer.UpdateMovement(ctx, after)
		if err != nil {
			return err
		}
		out = updated
		return s.trail.RecordAudit(ctx, audit.Entry{
			ID:         uuid.New(),
			EntityType: audit.EntityMovement,
			EntityID:   updated.ID,
			Action:     audit.ActionUpdate,
			Actor:      actor,
			OldValues:  audit.MovementSnapshot(before),
			NewValues:  audit.MovementSnapshot(updated),
			At:         now,
		})
	})
	if err != nil {
		return ledger.Movement{}, err
	}
	s.log.Info("movement updated", "movement_id", out.ID, "number", out.Number)
	return out, nil
}

func apply(m ledger.Movement, ch Changes, actor string, now time.Time) ledger.Movement {
	if ch.Number != nil {
		m.Number = *ch.Number
	}
	if ch.Date != nil {
		m.Date = *ch.Date
	}
	if ch.AccountID != nil {
		m.AccountID = *ch.AccountID
	}
	if ch.Direction != nil && *ch.Direction != m.Direction {
		m.Direction = *ch.Direction
		m.IncomeSourceID, m.ExpenseCategoryID = nil, nil
	}
	if ch.IncomeSourceID != nil {
		id := *ch.IncomeSourceID
		m.IncomeSourceID = &id
	}
	if ch.ExpenseCategoryID != nil {
		id := *ch.ExpenseCategoryID
		m.ExpenseCategoryID = &id
	}
	if ch.Amount != nil {
		m.Amount = *ch.Amount
	}
	if ch.Description != nil {
		m.Description = *ch.Description
	}
	if ch.Medium != nil {
		m.Medium = *ch.Medium
	}
	if ch.Status != nil && *ch.Status != m.Status {
		m.Status = *ch.Status
		switch m.Status {
		case ledger.StatusApproved:
			m.ApprovedAt, m.ApprovedBy = &now, actor
		case ledger.StatusDraft:
			m.ApprovedAt, m.ApprovedBy = nil, ""
		}
	}
	m.UpdatedAt, m.UpdatedBy = &now, actor
	return m
}

func (s *service) Void(ctx context.Context, id uuid.UUID, reason, actor string) (out ledger.Movement, err error) {
	defer func() { observe("void", err) }()

	if actor, err = requireActor(actor); err != nil {
		return ledger.Movement{}, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return ledger.Movement{}, errs.New(errs.KindInvalid, "void reason is required")
	}
	current, err := s.repo.MovementByID(ctx, id)
	if err != nil {
		return ledger.Movement{}, err
	}

	locked := []ledger.Period{current.Period()}
	err = s.locker.WithPeriodLock(ctx, locked, func(ctx context.Context) error {
		before, err := s.lockedMovement(ctx, id, locked)
		if err != nil {
			return err
		}
		if err := s.ensureOpen(ctx, before.Date); err != nil {
			return err
		}
		if before.Status == ledger.StatusVoid {
			return errs.New(errs.KindAlreadyVoid, "movement %s is already void", before.Number)
		}
		now := s.now().UTC()
		after := before
		after.Status = ledger.StatusVoid
		after.Void = &ledger.VoidInfo{Reason: reason, At: now, By: actor}
		after.UpdatedAt, after.UpdatedBy = &now, actor

		updated, err := s.writer.UpdateMovement(ctx, after)
		if err != nil {
			return err
		}
		out = updated
		return s.trail.RecordAudit(ctx, audit.Entry{
			ID:         uuid.New(),
			EntityType: audit.EntityMovement,
			EntityID:   updated.ID,
			Action:     audit.ActionVoid,
			Actor:      actor,
			OldValues:  audit.MovementSnapshot(before),
			NewValues:  audit.MovementSnapshot(updated),
			Note:       reason,
			At:         now,
		})
	})
	if err != nil {
		return ledger.Movement{}, err
	}
	s.log.Info("movement voided", "movement_id", out.ID, "number", out.Number)
	return out, nil
}

// Delete removes the movement outright. Void is preferred; deletions are
// flagged destructive in the audit trail.
func (s *service) Delete(ctx context.Context, id uuid.UUID, actor string) (err error) {
	defer func() { observe("delete", err) }()

	if actor, err = requireActor(actor); err != nil {
		return err
	}
	current, err := s.repo.MovementByID(ctx, id)
	if err != nil {
		return err
	}
	locked := []ledger.Period{current.Period()}
	err = s.locker.WithPeriodLock(ctx, locked, func(ctx context.Context) error {
		before, err := s.lockedMovement(ctx, id, locked)
		if err != nil {
			return err
		}
		if err := s.ensureOpen(ctx, before.Date); err != nil {
			return err
		}
		if err := s.writer.DeleteMovement(ctx, id); err != nil {
			return err
		}
		return s.trail.RecordAudit(ctx, audit.Entry{
			ID:          uuid.New(),
			EntityType:  audit.EntityMovement,
			EntityID:    before.ID,
			Action:      audit.ActionDelete,
			Actor:       actor,
			OldValues:   audit.MovementSnapshot(before),
			Destructive: true,
			At:          s.now().UTC(),
		})
	})
	if err != nil {
		return err
	}
	s.log.Warn("movement deleted", "movement_id", current.ID, "number", current.Number, "actor", actor)
	return nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (ledger.Movement, error) {
	if id == uuid.Nil {
		return ledger.Movement{}, errs.ErrInvalid
	}
	return s.repo.MovementByID(ctx, id)
}

func (s *service) List(ctx context.Context, f ledger.MovementFilter) ([]ledger.Movement, error) {
	return s.repo.ListMovements(ctx, f)
}
