package workbook

import (
	"errors"
	"strings"
	"time"

	"github.com/govalues/decimal"

	"github.com/tinoosan/treasury/internal/ledger"
	"github.com/tinoosan/treasury/internal/textnorm"
)

const (
	headerScanRows = 20
	headerScanCols = 10
)

// ErrNoHeader is returned by ExtractRows for sheets without a header row.
var ErrNoHeader = errors.New("no header row with FECHA, CONCEPTO, INGRESOS and EGRESOS")

// Header holds zero-based column indexes. Balance is -1 when the sheet has none.
type Header struct {
	Row     int
	Date    int
	Concept int
	Income  int
	Expense int
	Balance int
}

// FindHeader scans the top-left corner of the sheet for the column titles.
func FindHeader(s *Sheet) (Header, bool) {
	for r := 0; r < headerScanRows && r < len(s.Rows); r++ {
		h := Header{Row: r, Date: -1, Concept: -1, Income: -1, Expense: -1, Balance: -1}
		for c := 0; c < headerScanCols && c < len(s.Rows[r]); c++ {
			switch textnorm.Upper(s.Rows[r][c].Value) {
			case "FECHA":
				h.Date = c
			case "CONCEPTO":
				h.Concept = c
			case "INGRESOS":
				h.Income = c
			case "EGRESOS":
				h.Expense = c
			case "SALDO":
				h.Balance = c
			}
		}
		if h.Date >= 0 && h.Concept >= 0 && h.Income >= 0 && h.Expense >= 0 {
			return h, true
		}
	}
	return Header{}, false
}

// Summary rows carry totals and carried balances, never movements.
var (
	summaryKeywords = []string{
		"SALDO EFECTIVO",
		"TOTAL INGRESOS",
		"INGRESOS DOLARES",
		"SALDO EN TESORERIA",
		"MES ANTERIOR",
		"TOTAL EGRESOS",
		"SALDO FINAL",
		"TOTAL CONSIGNACIONES",
	}
	summaryExact = []string{"EGRESOS"}
)

const previousMonthKeyword = "MES ANTERIOR"

// IsSummaryRow reports whether a concept text labels a totals or balance row.
func IsSummaryRow(concept string) bool {
	n := textnorm.Upper(concept)
	for _, k := range summaryExact {
		if n == k {
			return true
		}
	}
	for _, k := range summaryKeywords {
		if strings.Contains(n, k) {
			return true
		}
	}
	return false
}

// Row is a movement candidate read from a sheet.
type Row struct {
	// Number is the one-based spreadsheet row.
	Number          int
	Date            time.Time
	Description     string
	Direction       ledger.Direction
	Amount          decimal.Decimal
	DeclaredBalance *decimal.Decimal
}

// Extraction is what ExtractRows found in one sheet.
type Extraction struct {
	Header Header
	Rows   []Row
	// DeclaredOpening is the carried balance printed on the previous-month row, if any.
	DeclaredOpening *decimal.Decimal
}

// ExtractRows reads movement rows below the header. Summary rows and rows
// that are not purely income or purely expense are dropped without error.
func ExtractRows(s *Sheet) (Extraction, error) {
	h, ok := FindHeader(s)
	if !ok {
		return Extraction{}, ErrNoHeader
	}
	ex := Extraction{Header: h}
	for r := h.Row + 1; r < len(s.Rows); r++ {
		concept := strings.TrimSpace(s.Cell(r, h.Concept).Value)
		if concept == "" {
			continue
		}
		if IsSummaryRow(concept) {
			if ex.DeclaredOpening == nil && strings.Contains(textnorm.Upper(concept), previousMonthKeyword) {
				ex.DeclaredOpening = openingFrom(s, r, h)
			}
			continue
		}
		date, err := ParseDate(s.Cell(r, h.Date))
		if err != nil {
			continue
		}
		income := amountOrZero(s.Cell(r, h.Income))
		expense := amountOrZero(s.Cell(r, h.Expense))

		row := Row{Number: r + 1, Date: date, Description: concept}
		switch {
		case income.IsPos() && !expense.IsPos():
			row.Direction, row.Amount = ledger.DirectionIncome, income
		case expense.IsPos() && !income.IsPos():
			row.Direction, row.Amount = ledger.DirectionExpense, expense
		default:
			continue
		}
		row.Amount = row.Amount.Round(ledger.AmountScale)
		if h.Balance >= 0 {
			if b, err := ParseAmount(s.Cell(r, h.Balance)); err == nil {
				b = b.Round(ledger.AmountScale)
				row.DeclaredBalance = &b
			}
		}
		ex.Rows = append(ex.Rows, row)
	}
	return ex, nil
}

func openingFrom(s *Sheet, r int, h Header) *decimal.Decimal {
	cols := []int{h.Income}
	if h.Balance >= 0 {
		cols = []int{h.Balance, h.Income}
	}
	for _, c := range cols {
		if d, err := ParseAmount(s.Cell(r, c)); err == nil {
			d = d.Round(ledger.AmountScale)
			return &d
		}
	}
	return nil
}

func amountOrZero(c Cell) decimal.Decimal {
	d, err := ParseAmount(c)
	if err != nil {
		return decimal.Zero
	}
	return d
}
