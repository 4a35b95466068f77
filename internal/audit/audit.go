// Package audit describes the write-only trail left by ledger mutations.
package audit

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/treasury/internal/ledger"
)

// Action names what happened to the entity.
type Action string

const (
	ActionCreate     Action = "CREATE"
	ActionUpdate     Action = "UPDATE"
	ActionVoid       Action = "VOID"
	ActionDelete     Action = "DELETE"
	ActionCloseMonth Action = "CLOSE_MONTH"
)

// Entity types recorded in the trail.
const (
	EntityMovement = "movement"
	EntityClosure  = "period_closure"
)

// Entry is one audit record.
type Entry struct {
	ID          uuid.UUID `json:"id"`
	EntityType  string    `json:"entity_type"`
	EntityID    uuid.UUID `json:"entity_id"`
	Action      Action    `json:"action"`
	Actor       string    `json:"actor"`
	OldValues   Snapshot  `json:"old_values,omitempty"`
	NewValues   Snapshot  `json:"new_values,omitempty"`
	Note        string    `json:"note,omitempty"`
	Destructive bool      `json:"destructive,omitempty"`
	At          time.Time `json:"at"`
}

// Recorder persists audit entries.
type Recorder interface {
	RecordAudit(ctx context.Context, e Entry) error
}

// MovementSnapshot flattens a movement for the trail.
func MovementSnapshot(m ledger.Movement) Snapshot {
	s := Snapshot{
		"number":      m.Number,
		"date":        m.Date.Format(time.DateOnly),
		"direction":   string(m.Direction),
		"account_id":  m.AccountID.String(),
		"amount":      m.Amount.String(),
		"description": m.Description,
		"medium":      string(m.Medium),
		"status":      string(m.Status),
	}
	if m.IncomeSourceID != nil {
		s["income_source_id"] = m.IncomeSourceID.String()
	}
	if m.ExpenseCategoryID != nil {
		s["expense_category_id"] = m.ExpenseCategoryID.String()
	}
	if m.Void != nil {
		s["void_reason"] = m.Void.Reason
		s["void_by"] = m.Void.By
		s["void_at"] = m.Void.At.UTC().Format(time.RFC3339)
	}
	if m.Import != nil {
		s["import_fingerprint"] = m.Import.Fingerprint
	}
	return s
}

// ClosureSnapshot flattens a closure for the trail.
func ClosureSnapshot(c ledger.Closure) Snapshot {
	return Snapshot{
		"year":            strconv.Itoa(c.Period.Year),
		"month":           strconv.Itoa(c.Period.Month),
		"opening_balance": c.OpeningBalance.String(),
		"total_income":    c.TotalIncome.String(),
		"total_expense":   c.TotalExpense.String(),
		"closing_balance": c.ClosingBalance.String(),
		"notes":           c.Notes,
	}
}
