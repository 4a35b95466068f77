package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
)

// Direction tells whether a movement brings cash in or takes it out.
type Direction string

const (
	// DirectionIncome increases the treasury balance.
	DirectionIncome Direction = "income"
	// DirectionExpense decreases the treasury balance.
	DirectionExpense Direction = "expense"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool { return d == DirectionIncome || d == DirectionExpense }

// Status is the lifecycle state of a movement.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusApproved Status = "approved"
	StatusVoid     Status = "void"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusApproved, StatusVoid:
		return true
	}
	return false
}

// Medium is the payment instrument of a movement.
type Medium string

const (
	MediumCash     Medium = "cash"
	MediumTransfer Medium = "transfer"
	MediumCard     Medium = "card"
	MediumCheck    Medium = "check"
	MediumOther    Medium = "other"
)

// Valid reports whether m is a known medium.
func (m Medium) Valid() bool {
	switch m {
	case MediumCash, MediumTransfer, MediumCard, MediumCheck, MediumOther:
		return true
	}
	return false
}

// AmountScale is the number of decimal places kept for amounts (currency minor units).
const AmountScale = 2

// Account is a financial account (bank or cash box) holding an opening balance.
type Account struct {
	ID             uuid.UUID
	Code           string
	Name           string
	Currency       string
	OpeningBalance decimal.Decimal
	Active         bool
}

// IncomeSource is a catalog entry income movements are classified under.
type IncomeSource struct {
	ID     uuid.UUID
	Code   string
	Name   string
	Active bool
}

// ExpenseCategory is a catalog entry expense movements are classified under.
type ExpenseCategory struct {
	ID     uuid.UUID
	Code   string
	Name   string
	Active bool
}

// VoidInfo groups the attributes set when a movement is voided.
// They exist together or not at all.
type VoidInfo struct {
	Reason string
	At     time.Time
	By     string
}

// ImportProvenance records where an imported movement came from.
type ImportProvenance struct {
	Fingerprint string
	SourceFile  string
	Sheet       string
	Row         int
	ImportedAt  time.Time
	// DeclaredBalance is the balance the sheet printed on the row, if any.
	DeclaredBalance *decimal.Decimal
	// BalanceMismatch is set when DeclaredBalance disagreed with the running balance.
	BalanceMismatch bool
	ObservedBalance *decimal.Decimal
}

// Movement is a single dated cash event in the treasury ledger.
type Movement struct {
	ID                uuid.UUID
	Number            string
	Date              time.Time
	Direction         Direction
	AccountID         uuid.UUID
	IncomeSourceID    *uuid.UUID
	ExpenseCategoryID *uuid.UUID
	Amount            decimal.Decimal
	Description       string
	Medium            Medium
	Status            Status

	CreatedAt  time.Time
	CreatedBy  string
	UpdatedAt  *time.Time
	UpdatedBy  string
	ApprovedAt *time.Time
	ApprovedBy string

	Void   *VoidInfo
	Import *ImportProvenance
}

// Period returns the calendar month the movement is dated in.
func (m Movement) Period() Period { return PeriodOf(m.Date) }

// Signed returns the amount with the sign of its direction.
func (m Movement) Signed() decimal.Decimal {
	if m.Direction == DirectionExpense {
		return m.Amount.Neg()
	}
	return m.Amount
}

// CountsTowardBalance reports whether the movement contributes to computed balances.
// Only approved movements do.
func (m Movement) CountsTowardBalance() bool { return m.Status == StatusApproved }

// Closure marks a calendar month as closed for treasury purposes. Closures are append-only.
type Closure struct {
	ID             uuid.UUID
	Period         Period
	ClosedAt       time.Time
	ClosedBy       string
	OpeningBalance decimal.Decimal
	TotalIncome    decimal.Decimal
	TotalExpense   decimal.Decimal
	ClosingBalance decimal.Decimal
	Notes          string
	CreatedAt      time.Time
	CreatedBy      string
}

// MovementFilter narrows movement listings. Zero values mean "no filter".
type MovementFilter struct {
	From      *time.Time
	To        *time.Time // exclusive
	AccountID *uuid.UUID
	Direction Direction
	Status    Status
	Limit     int
}

// Match reports whether m satisfies the filter (Limit is ignored).
func (f MovementFilter) Match(m Movement) bool {
	if f.From != nil && m.Date.Before(*f.From) {
		return false
	}
	if f.To != nil && !m.Date.Before(*f.To) {
		return false
	}
	if f.AccountID != nil && m.AccountID != *f.AccountID {
		return false
	}
	if f.Direction != "" && m.Direction != f.Direction {
		return false
	}
	if f.Status != "" && m.Status != f.Status {
		return false
	}
	return true
}
