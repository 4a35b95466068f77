package httpapi

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/govalues/money"

	"github.com/tinoosan/treasury/internal/audit"
	"github.com/tinoosan/treasury/internal/ledger"
	"github.com/tinoosan/treasury/internal/service/movement"
)

const dateLayout = "2006-01-02"

// Movements

type postMovementRequest struct {
	Number            string  `json:"number" validate:"required,max=64"`
	Date              string  `json:"date" validate:"required,datetime=2006-01-02"`
	Direction         string  `json:"direction" validate:"required,oneof=income expense"`
	AccountID         string  `json:"account_id" validate:"required,uuid"`
	IncomeSourceID    *string `json:"income_source_id,omitempty" validate:"omitempty,uuid"`
	ExpenseCategoryID *string `json:"expense_category_id,omitempty" validate:"omitempty,uuid"`
	AmountMinor       int64   `json:"amount_minor" validate:"gte=0"`
	Description       string  `json:"description" validate:"max=500"`
	Medium            string  `json:"medium" validate:"required,oneof=cash transfer card check other"`
	Status            string  `json:"status,omitempty" validate:"omitempty,oneof=draft approved"`
}

type patchMovementRequest struct {
	Number            *string `json:"number,omitempty" validate:"omitempty,min=1,max=64"`
	Date              *string `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Direction         *string `json:"direction,omitempty" validate:"omitempty,oneof=income expense"`
	AccountID         *string `json:"account_id,omitempty" validate:"omitempty,uuid"`
	IncomeSourceID    *string `json:"income_source_id,omitempty" validate:"omitempty,uuid"`
	ExpenseCategoryID *string `json:"expense_category_id,omitempty" validate:"omitempty,uuid"`
	AmountMinor       *int64  `json:"amount_minor,omitempty" validate:"omitempty,gte=0"`
	Description       *string `json:"description,omitempty" validate:"omitempty,max=500"`
	Medium            *string `json:"medium,omitempty" validate:"omitempty,oneof=cash transfer card check other"`
	Status            *string `json:"status,omitempty" validate:"omitempty,oneof=draft approved void"`
}

type voidMovementRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type voidResponse struct {
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
	By     string    `json:"by"`
}

type importResponse struct {
	Fingerprint     string    `json:"fingerprint"`
	SourceFile      string    `json:"source_file"`
	Sheet           string    `json:"sheet"`
	Row             int       `json:"row"`
	ImportedAt      time.Time `json:"imported_at"`
	DeclaredBalance *string   `json:"declared_balance,omitempty"`
	BalanceMismatch bool      `json:"balance_mismatch"`
	ObservedBalance *string   `json:"observed_balance,omitempty"`
}

type movementResponse struct {
	ID                uuid.UUID       `json:"id"`
	Number            string          `json:"number"`
	Date              string          `json:"date"`
	Direction         string          `json:"direction"`
	AccountID         uuid.UUID       `json:"account_id"`
	IncomeSourceID    *uuid.UUID      `json:"income_source_id,omitempty"`
	ExpenseCategoryID *uuid.UUID      `json:"expense_category_id,omitempty"`
	Amount            string          `json:"amount"`
	AmountMinor       int64           `json:"amount_minor"`
	Currency          string          `json:"currency"`
	Description       string          `json:"description"`
	Medium            string          `json:"medium"`
	Status            string          `json:"status"`
	CreatedAt         time.Time       `json:"created_at"`
	CreatedBy         string          `json:"created_by"`
	UpdatedAt         *time.Time      `json:"updated_at,omitempty"`
	UpdatedBy         string          `json:"updated_by,omitempty"`
	ApprovedAt        *time.Time      `json:"approved_at,omitempty"`
	ApprovedBy        string          `json:"approved_by,omitempty"`
	Void              *voidResponse   `json:"void,omitempty"`
	Import            *importResponse `json:"import,omitempty"`
}

type listMovementsResponse struct {
	Items []movementResponse `json:"items"`
}

// Closures

type postClosureRequest struct {
	Year  int    `json:"year" validate:"required,gte=1900,lte=9999"`
	Month int    `json:"month"`
	Notes string `json:"notes" validate:"max=1000"`
}

type closureResponse struct {
	ID             uuid.UUID `json:"id"`
	Year           int       `json:"year"`
	Month          int       `json:"month"`
	Period         string    `json:"period"`
	ClosedAt       time.Time `json:"closed_at"`
	ClosedBy       string    `json:"closed_by"`
	OpeningBalance string    `json:"opening_balance"`
	TotalIncome    string    `json:"total_income"`
	TotalExpense   string    `json:"total_expense"`
	ClosingBalance string    `json:"closing_balance"`
	Notes          string    `json:"notes,omitempty"`
}

type listClosuresResponse struct {
	Items []closureResponse `json:"items"`
}

// Imports

type postImportRequest struct {
	URI     string `json:"uri" validate:"required"`
	Account string `json:"account,omitempty" validate:"omitempty,max=64"`
}

// Catalogs

type catalogItem struct {
	ID     uuid.UUID `json:"id"`
	Code   string    `json:"code"`
	Name   string    `json:"name"`
	Active bool      `json:"active"`
}

type catalogsResponse struct {
	Income  []catalogItem `json:"income"`
	Expense []catalogItem `json:"expense"`
}

type auditResponse struct {
	Items []audit.Entry `json:"items"`
}

// amountFromMinor converts wire minor units into a decimal amount.
func (s *Server) amountFromMinor(minor int64) (decimal.Decimal, error) {
	amt, err := money.NewAmountFromMinorUnits(s.currency, minor)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("amount_minor: %w", err)
	}
	return amt.Decimal(), nil
}

// minorFromAmount converts an amount into minor units; amounts with more
// precision than the currency allows are rounded.
func (s *Server) minorFromAmount(d decimal.Decimal) int64 {
	curr, err := money.ParseCurr(s.currency)
	if err != nil {
		return 0
	}
	amt, err := money.NewAmountFromDecimal(curr, d)
	if err != nil {
		return 0
	}
	minor, _ := amt.MinorUnits()
	return minor
}

func parseUUIDPtr(s *string) (*uuid.UUID, error) {
	if s == nil {
		return nil, nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func (s *Server) toMovementDomain(req postMovementRequest) (ledger.Movement, error) {
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return ledger.Movement{}, fmt.Errorf("date: %w", err)
	}
	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		return ledger.Movement{}, fmt.Errorf("account_id: %w", err)
	}
	incomeID, err := parseUUIDPtr(req.IncomeSourceID)
	if err != nil {
		return ledger.Movement{}, fmt.Errorf("income_source_id: %w", err)
	}
	expenseID, err := parseUUIDPtr(req.ExpenseCategoryID)
	if err != nil {
		return ledger.Movement{}, fmt.Errorf("expense_category_id: %w", err)
	}
	amount, err := s.amountFromMinor(req.AmountMinor)
	if err != nil {
		return ledger.Movement{}, err
	}
	return ledger.Movement{
		Number:            req.Number,
		Date:              date,
		Direction:         ledger.Direction(req.Direction),
		AccountID:         accountID,
		IncomeSourceID:    incomeID,
		ExpenseCategoryID: expenseID,
		Amount:            amount,
		Description:       req.Description,
		Medium:            ledger.Medium(req.Medium),
		Status:            ledger.Status(req.Status),
	}, nil
}

func (s *Server) toChanges(req patchMovementRequest) (movement.Changes, error) {
	var ch movement.Changes
	ch.Number = req.Number
	ch.Description = req.Description
	if req.Date != nil {
		d, err := time.Parse(dateLayout, *req.Date)
		if err != nil {
			return ch, fmt.Errorf("date: %w", err)
		}
		ch.Date = &d
	}
	if req.Direction != nil {
		d := ledger.Direction(*req.Direction)
		ch.Direction = &d
	}
	if req.AccountID != nil {
		id, err := uuid.Parse(*req.AccountID)
		if err != nil {
			return ch, fmt.Errorf("account_id: %w", err)
		}
		ch.AccountID = &id
	}
	var err error
	if ch.IncomeSourceID, err = parseUUIDPtr(req.IncomeSourceID); err != nil {
		return ch, fmt.Errorf("income_source_id: %w", err)
	}
	if ch.ExpenseCategoryID, err = parseUUIDPtr(req.ExpenseCategoryID); err != nil {
		return ch, fmt.Errorf("expense_category_id: %w", err)
	}
	if req.AmountMinor != nil {
		a, err := s.amountFromMinor(*req.AmountMinor)
		if err != nil {
			return ch, err
		}
		ch.Amount = &a
	}
	if req.Medium != nil {
		m := ledger.Medium(*req.Medium)
		ch.Medium = &m
	}
	if req.Status != nil {
		st := ledger.Status(*req.Status)
		ch.Status = &st
	}
	return ch, nil
}

func decimalPtrString(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	v := d.String()
	return &v
}

func (s *Server) toMovementResponse(m ledger.Movement) movementResponse {
	out := movementResponse{
		ID:                m.ID,
		Number:            m.Number,
		Date:              m.Date.Format(dateLayout),
		Direction:         string(m.Direction),
		AccountID:         m.AccountID,
		IncomeSourceID:    m.IncomeSourceID,
		ExpenseCategoryID: m.ExpenseCategoryID,
		Amount:            m.Amount.String(),
		AmountMinor:       s.minorFromAmount(m.Amount),
		Currency:          s.currency,
		Description:       m.Description,
		Medium:            string(m.Medium),
		Status:            string(m.Status),
		CreatedAt:         m.CreatedAt,
		CreatedBy:         m.CreatedBy,
		UpdatedAt:         m.UpdatedAt,
		UpdatedBy:         m.UpdatedBy,
		ApprovedAt:        m.ApprovedAt,
		ApprovedBy:        m.ApprovedBy,
	}
	if m.Void != nil {
		out.Void = &voidResponse{Reason: m.Void.Reason, At: m.Void.At, By: m.Void.By}
	}
	if p := m.Import; p != nil {
		out.Import = &importResponse{
			Fingerprint:     p.Fingerprint,
			SourceFile:      p.SourceFile,
			Sheet:           p.Sheet,
			Row:             p.Row,
			ImportedAt:      p.ImportedAt,
			DeclaredBalance: decimalPtrString(p.DeclaredBalance),
			BalanceMismatch: p.BalanceMismatch,
			ObservedBalance: decimalPtrString(p.ObservedBalance),
		}
	}
	return out
}

func toClosureResponse(c ledger.Closure) closureResponse {
	return closureResponse{
		ID:             c.ID,
		Year:           c.Period.Year,
		Month:          c.Period.Month,
		Period:         c.Period.String(),
		ClosedAt:       c.ClosedAt,
		ClosedBy:       c.ClosedBy,
		OpeningBalance: c.OpeningBalance.String(),
		TotalIncome:    c.TotalIncome.String(),
		TotalExpense:   c.TotalExpense.String(),
		ClosingBalance: c.ClosingBalance.String(),
		Notes:          c.Notes,
	}
}
