package ledger

import (
	"strings"

	"github.com/google/uuid"

	"github.com/tinoosan/treasury/internal/errs"
)

// Validate checks the shape invariants every stored movement must hold.
// It does not look at storage (number uniqueness, closed periods).
func (m Movement) Validate() error {
	if strings.TrimSpace(m.Number) == "" {
		return errs.New(errs.KindInvalid, "movement number is required")
	}
	if m.Date.IsZero() {
		return errs.New(errs.KindInvalid, "movement date is required")
	}
	if m.AccountID == uuid.Nil {
		return errs.New(errs.KindInvalid, "account is required")
	}
	if !m.Direction.Valid() {
		return errs.New(errs.KindInvalid, "direction must be income or expense")
	}
	if m.Amount.Sign() < 0 {
		return errs.New(errs.KindInvalid, "amount must not be negative")
	}
	if m.Amount.Scale() > AmountScale {
		return errs.New(errs.KindInvalid, "amount has more than %d decimal places", AmountScale)
	}
	switch m.Direction {
	case DirectionIncome:
		if m.IncomeSourceID == nil || m.ExpenseCategoryID != nil {
			return errs.New(errs.KindInvalid, "income movements need an income source and no expense category")
		}
	case DirectionExpense:
		if m.ExpenseCategoryID == nil || m.IncomeSourceID != nil {
			return errs.New(errs.KindInvalid, "expense movements need an expense category and no income source")
		}
	}
	if m.Medium != "" && !m.Medium.Valid() {
		return errs.New(errs.KindInvalid, "unknown payment medium %q", m.Medium)
	}
	if !m.Status.Valid() {
		return errs.New(errs.KindInvalid, "unknown status %q", m.Status)
	}
	if (m.Status == StatusVoid) != (m.Void != nil) {
		return errs.New(errs.KindInvalid, "void details must be present exactly when status is void")
	}
	return nil
}
