package workbook

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/govalues/decimal"
	"github.com/xuri/excelize/v2"
)

var amountCleaner = strings.NewReplacer("$", "", " ", "", "\u00a0", "", "\t", "", ".", "")

// ParseAmount reads a money cell. Number cells parse as stored; text uses the
// local format where "." groups thousands and "," marks decimals, so
// "$1.000,50" is 1000.50.
func ParseAmount(c Cell) (decimal.Decimal, error) {
	switch c.Kind {
	case CellNumber:
		return parseNumber(c.Value)
	case CellText:
		s := amountCleaner.Replace(strings.TrimSpace(c.Value))
		s = strings.Replace(s, ",", ".", 1)
		if s == "" {
			return decimal.Decimal{}, fmt.Errorf("amount: empty text")
		}
		return decimal.Parse(s)
	default:
		return decimal.Decimal{}, fmt.Errorf("amount: empty cell")
	}
}

func parseNumber(raw string) (decimal.Decimal, error) {
	if d, err := decimal.Parse(raw); err == nil {
		return d, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("amount %q: %w", raw, err)
	}
	return decimal.NewFromFloat64(f)
}

var dateLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2-1-2006",
	"02.01.2006",
	"02/01/06",
	"2/1/06",
	"02-01-06",
	time.DateOnly,
	"2006/01/02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"02/01/2006 15:04:05",
}

// ParseDate reads a date cell: an Excel serial for number cells, or day-first
// or ISO text. The result is midnight UTC of that calendar day.
func ParseDate(c Cell) (time.Time, error) {
	switch c.Kind {
	case CellNumber:
		serial, err := strconv.ParseFloat(c.Value, 64)
		if err != nil {
			return time.Time{}, fmt.Errorf("date %q: %w", c.Value, err)
		}
		if serial < 1 {
			return time.Time{}, fmt.Errorf("date serial %v out of range", serial)
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, err
		}
		return day(t), nil
	case CellText:
		s := strings.TrimSpace(c.Value)
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return day(t), nil
			}
		}
		return time.Time{}, fmt.Errorf("date %q: unrecognised format", s)
	default:
		return time.Time{}, fmt.Errorf("date: empty cell")
	}
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
