package workbook

import (
	"regexp"
	"sort"
	"strconv"

	"github.com/tinoosan/treasury/internal/ledger"
	"github.com/tinoosan/treasury/internal/textnorm"
)

// Matches "CORTE [A] <month> [<day>-]<year>" on the normalised sheet name.
var sheetNamePattern = regexp.MustCompile(`^CORTE\s+(?:A\s+)?([A-Z]+)[\s\-.]+(?:\d{1,2}[\s\-])?(\d{2,4})\s*$`)

var monthNames = map[string]int{
	"ENERO":      1,
	"FEBRERO":    2,
	"MARZO":      3,
	"ABRIL":      4,
	"MAYO":       5,
	"JUNIO":      6,
	"JULIO":      7,
	"AGOSTO":     8,
	"SEPTIEMBRE": 9,
	"SETIEMBRE":  9,
	"OCTUBRE":    10,
	"NOVIEMBRE":  11,
	"DICIEMBRE":  12,
}

// ParseSheetName returns the month a ledger sheet covers.
// "CORTE MAYO - 24" is 2024-05 and "CORTE NOVIEMBRE 30-25" is 2025-11.
func ParseSheetName(name string) (ledger.Period, bool) {
	m := sheetNamePattern.FindStringSubmatch(textnorm.Upper(name))
	if m == nil {
		return ledger.Period{}, false
	}
	month, ok := monthNames[m[1]]
	if !ok {
		return ledger.Period{}, false
	}
	year, err := strconv.Atoi(m[2])
	if err != nil || len(m[2]) == 3 {
		return ledger.Period{}, false
	}
	if year < 100 {
		year += 2000
	}
	return ledger.Period{Year: year, Month: month}, true
}

// LedgerSheet is a recognised monthly sheet.
type LedgerSheet struct {
	Sheet  *Sheet
	Period ledger.Period
}

// DetectLedgerSheets returns the recognised sheets in chronological order.
// Sheets for the same month keep their workbook order.
func DetectLedgerSheets(wb *Workbook) []LedgerSheet {
	var out []LedgerSheet
	for i := range wb.Sheets {
		if p, ok := ParseSheetName(wb.Sheets[i].Name); ok {
			out = append(out, LedgerSheet{Sheet: &wb.Sheets[i], Period: p})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Period.Before(out[j].Period) })
	return out
}
