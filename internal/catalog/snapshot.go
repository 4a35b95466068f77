package catalog

import (
	"strings"

	"github.com/google/uuid"

	"github.com/tinoosan/treasury/internal/ledger"
)

// Snapshot is a read-only view of the income-source and expense-category
// catalogs, loaded once per import run.
type Snapshot struct {
	income  map[string]ledger.IncomeSource
	expense map[string]ledger.ExpenseCategory
}

// NewSnapshot indexes the given catalog rows by upper-cased code.
func NewSnapshot(income []ledger.IncomeSource, expense []ledger.ExpenseCategory) Snapshot {
	s := Snapshot{
		income:  make(map[string]ledger.IncomeSource, len(income)),
		expense: make(map[string]ledger.ExpenseCategory, len(expense)),
	}
	for _, i := range income {
		s.income[strings.ToUpper(i.Code)] = i
	}
	for _, e := range expense {
		s.expense[strings.ToUpper(e.Code)] = e
	}
	return s
}

// Lookup resolves a code for the given direction to its catalog id.
func (s Snapshot) Lookup(d ledger.Direction, code string) (uuid.UUID, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	switch d {
	case ledger.DirectionIncome:
		if v, ok := s.income[code]; ok {
			return v.ID, true
		}
	case ledger.DirectionExpense:
		if v, ok := s.expense[code]; ok {
			return v.ID, true
		}
	}
	return uuid.Nil, false
}

// Len reports the number of entries per direction.
func (s Snapshot) Len() (income, expense int) { return len(s.income), len(s.expense) }

// Seed builds catalog rows from the curated defaults with fresh ids.
func Seed() ([]ledger.IncomeSource, []ledger.ExpenseCategory) {
	in := curated[ledger.DirectionIncome]
	ex := curated[ledger.DirectionExpense]
	income := make([]ledger.IncomeSource, 0, len(in))
	for _, d := range in {
		income = append(income, ledger.IncomeSource{ID: uuid.New(), Code: d.Code, Name: d.Label, Active: true})
	}
	expense := make([]ledger.ExpenseCategory, 0, len(ex))
	for _, d := range ex {
		expense = append(expense, ledger.ExpenseCategory{ID: uuid.New(), Code: d.Code, Name: d.Label, Active: true})
	}
	return income, expense
}
