// Package memory provides an in-memory store used for development and tests.
// It keeps code paths easy to follow while the Postgres store carries production data.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/tinoosan/treasury/internal/audit"
	"github.com/tinoosan/treasury/internal/catalog"
	"github.com/tinoosan/treasury/internal/errs"
	"github.com/tinoosan/treasury/internal/ledger"
)

// Store is an in-memory implementation of every repository and writer the
// services need. Data is guarded by an RWMutex; period locks use a separate mutex.
type Store struct {
	mu        sync.RWMutex
	accounts  map[uuid.UUID]ledger.Account
	income    map[uuid.UUID]ledger.IncomeSource
	expense   map[uuid.UUID]ledger.ExpenseCategory
	movements map[uuid.UUID]ledger.Movement
	numbers   map[string]uuid.UUID
	prints    map[string]uuid.UUID
	closures  map[ledger.Period]ledger.Closure
	trail     []audit.Entry

	periodMu sync.Mutex
}

// New constructs an empty in-memory store.
func New() *Store {
	s := &Store{}
	s.Reset()
	return s
}

// Reset drops all data.
func (s *Store) Reset() {
	s.mu.Lock()
	s.accounts = map[uuid.UUID]ledger.Account{}
	s.income = map[uuid.UUID]ledger.IncomeSource{}
	s.expense = map[uuid.UUID]ledger.ExpenseCategory{}
	s.movements = map[uuid.UUID]ledger.Movement{}
	s.numbers = map[string]uuid.UUID{}
	s.prints = map[string]uuid.UUID{}
	s.closures = map[ledger.Period]ledger.Closure{}
	s.trail = nil
	s.mu.Unlock()
}

// Seed helpers for local dev/tests.
func (s *Store) SeedAccount(a ledger.Account) {
	s.mu.Lock()
	s.accounts[a.ID] = a
	s.mu.Unlock()
}

func (s *Store) SeedIncomeSource(i ledger.IncomeSource) {
	s.mu.Lock()
	s.income[i.ID] = i
	s.mu.Unlock()
}

func (s *Store) SeedExpenseCategory(e ledger.ExpenseCategory) {
	s.mu.Lock()
	s.expense[e.ID] = e
	s.mu.Unlock()
}

func (s *Store) SeedClosure(c ledger.Closure) {
	s.mu.Lock()
	s.closures[c.Period] = c
	s.mu.Unlock()
}

// SeedMovement stores m without any guard checks.
func (s *Store) SeedMovement(m ledger.Movement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putLocked(m)
}

// SeedDefaults installs the treasury account with the given opening balance
// plus the curated catalogs, and returns the account.
func (s *Store) SeedDefaults(account ledger.Account) ledger.Account {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	if account.Code == "" {
		account.Code = catalog.DefaultAccountCode
	}
	if account.Currency == "" {
		account.Currency = "COP"
	}
	income, expense := catalog.Seed()
	s.mu.Lock()
	s.accounts[account.ID] = account
	for _, i := range income {
		s.income[i.ID] = i
	}
	for _, e := range expense {
		s.expense[e.ID] = e
	}
	s.mu.Unlock()
	return account
}

// Ready always succeeds for the in-memory store.
func (s *Store) Ready(context.Context) error { return nil }

// WithPeriodLock serialises fn against every other period-locked operation.
// One mutex covers all months.
func (s *Store) WithPeriodLock(ctx context.Context, _ []ledger.Period, fn func(ctx context.Context) error) error {
	s.periodMu.Lock()
	defer s.periodMu.Unlock()
	return fn(ctx)
}

// Accounts and catalogs

func (s *Store) AccountByID(_ context.Context, id uuid.UUID) (ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return ledger.Account{}, errs.ErrNotFound
	}
	return a, nil
}

func (s *Store) AccountByCode(_ context.Context, code string) (ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.accounts {
		if strings.EqualFold(a.Code, code) {
			return a, nil
		}
	}
	return ledger.Account{}, errs.ErrNotFound
}

func (s *Store) ListAccounts(_ context.Context) ([]ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *Store) ListIncomeSources(_ context.Context) ([]ledger.IncomeSource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.IncomeSource, 0, len(s.income))
	for _, i := range s.income {
		out = append(out, i)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *Store) ListExpenseCategories(_ context.Context) ([]ledger.ExpenseCategory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.ExpenseCategory, 0, len(s.expense))
	for _, e := range s.expense {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// Movements

func (s *Store) MovementByID(_ context.Context, id uuid.UUID) (ledger.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.movements[id]
	if !ok {
		return ledger.Movement{}, errs.New(errs.KindNotFound, "movement %s not found", id)
	}
	return m, nil
}

func (s *Store) MovementNumberExists(_ context.Context, number string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.numbers[number]
	return ok, nil
}

func (s *Store) MovementExistsByFingerprint(_ context.Context, fingerprint string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.prints[fingerprint]
	return ok, nil
}

// ListMovements returns matches ordered by date then number.
func (s *Store) ListMovements(_ context.Context, f ledger.MovementFilter) ([]ledger.Movement, error) {
	s.mu.RLock()
	out := make([]ledger.Movement, 0, len(s.movements))
	for _, m := range s.movements {
		if f.Match(m) {
			out = append(out, m)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Number < out[j].Number
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *Store) CreateMovement(_ context.Context, m ledger.Movement) (ledger.Movement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.numbers[m.Number]; ok {
		return ledger.Movement{}, errs.New(errs.KindDuplicateMovementNumber, "movement number %q is already in use", m.Number)
	}
	if m.Import != nil {
		if _, ok := s.prints[m.Import.Fingerprint]; ok {
			return ledger.Movement{}, errs.New(errs.KindConflict, "fingerprint %s already imported", m.Import.Fingerprint)
		}
	}
	if _, ok := s.movements[m.ID]; ok {
		return ledger.Movement{}, errs.New(errs.KindConflict, "movement %s already exists", m.ID)
	}
	s.putLocked(m)
	return m, nil
}

func (s *Store) UpdateMovement(_ context.Context, m ledger.Movement) (ledger.Movement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.movements[m.ID]
	if !ok {
		return ledger.Movement{}, errs.New(errs.KindNotFound, "movement %s not found", m.ID)
	}
	if id, taken := s.numbers[m.Number]; taken && id != m.ID {
		return ledger.Movement{}, errs.New(errs.KindDuplicateMovementNumber, "movement number %q is already in use", m.Number)
	}
	s.dropLocked(old)
	s.putLocked(m)
	return m, nil
}

func (s *Store) DeleteMovement(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.movements[id]
	if !ok {
		return errs.New(errs.KindNotFound, "movement %s not found", id)
	}
	s.dropLocked(m)
	return nil
}

func (s *Store) putLocked(m ledger.Movement) {
	s.movements[m.ID] = m
	s.numbers[m.Number] = m.ID
	if m.Import != nil && m.Import.Fingerprint != "" {
		s.prints[m.Import.Fingerprint] = m.ID
	}
}

func (s *Store) dropLocked(m ledger.Movement) {
	delete(s.movements, m.ID)
	delete(s.numbers, m.Number)
	if m.Import != nil {
		delete(s.prints, m.Import.Fingerprint)
	}
}

// Closures

func (s *Store) ClosureByPeriod(_ context.Context, p ledger.Period) (ledger.Closure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.closures[p]
	if !ok {
		return ledger.Closure{}, errs.New(errs.KindNotFound, "no closure for %s", p)
	}
	return c, nil
}

// ListClosures returns closures newest month first.
func (s *Store) ListClosures(_ context.Context) ([]ledger.Closure, error) {
	s.mu.RLock()
	out := make([]ledger.Closure, 0, len(s.closures))
	for _, c := range s.closures {
		out = append(out, c)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[j].Period.Before(out[i].Period) })
	return out, nil
}

func (s *Store) CreateClosure(_ context.Context, c ledger.Closure) (ledger.Closure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.closures[c.Period]; ok {
		return ledger.Closure{}, errs.New(errs.KindAlreadyClosed, "period %s is already closed", c.Period)
	}
	s.closures[c.Period] = c
	return c, nil
}

// Audit

func (s *Store) RecordAudit(_ context.Context, e audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.OldValues = e.OldValues.Clone()
	e.NewValues = e.NewValues.Clone()
	s.trail = append(s.trail, e)
	return nil
}

// AuditTrail returns the entries recorded for an entity, oldest first.
func (s *Store) AuditTrail(_ context.Context, entityID uuid.UUID) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Entry
	for _, e := range s.trail {
		if e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}
