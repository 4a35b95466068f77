package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/govalues/decimal"
)

// Period identifies a calendar month.
type Period struct {
	Year  int
	Month int
}

// PeriodOf returns the month t falls in, using t's own location.
func PeriodOf(t time.Time) Period { return Period{Year: t.Year(), Month: int(t.Month())} }

// DateOf keeps the calendar date of t as written in its own location and
// returns it as midnight UTC, the form movement dates are stored and
// compared in.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Valid reports whether Month is within 1..12.
func (p Period) Valid() bool { return p.Month >= 1 && p.Month <= 12 }

// Start is the first instant of the month in UTC.
func (p Period) Start() time.Time {
	return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
}

// End is the first instant of the following month in UTC (exclusive bound).
func (p Period) End() time.Time { return p.Start().AddDate(0, 1, 0) }

// Before orders periods chronologically.
func (p Period) Before(o Period) bool {
	if p.Year != o.Year {
		return p.Year < o.Year
	}
	return p.Month < o.Month
}

// In reports whether p is one of ps.
func (p Period) In(ps []Period) bool {
	for _, o := range ps {
		if o == p {
			return true
		}
	}
	return false
}

// Key is a compact sortable integer, e.g. 202510.
func (p Period) Key() int { return p.Year*100 + p.Month }

func (p Period) String() string { return fmt.Sprintf("%04d-%02d", p.Year, p.Month) }

// UniquePeriods returns the distinct periods of the given dates in chronological order.
func UniquePeriods(dates ...time.Time) []Period {
	seen := make(map[Period]struct{}, len(dates))
	out := make([]Period, 0, len(dates))
	for _, d := range dates {
		p := PeriodOf(d)
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Apply adds the signed amount of m to balance when m counts toward balances.
func Apply(balance decimal.Decimal, m Movement) (decimal.Decimal, error) {
	if !m.CountsTowardBalance() {
		return balance, nil
	}
	return balance.Add(m.Signed())
}

// Totals sums approved income and expense amounts of the given movements.
func Totals(ms []Movement) (income, expense decimal.Decimal, err error) {
	for _, m := range ms {
		if !m.CountsTowardBalance() {
			continue
		}
		switch m.Direction {
		case DirectionIncome:
			income, err = income.Add(m.Amount)
		case DirectionExpense:
			expense, err = expense.Add(m.Amount)
		}
		if err != nil {
			return decimal.Decimal{}, decimal.Decimal{}, err
		}
	}
	return income, expense, nil
}
