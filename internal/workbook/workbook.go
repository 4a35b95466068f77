// Package workbook reads treasury spreadsheets and turns their monthly
// ledger sheets into raw movement rows.
package workbook

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/tinoosan/treasury/internal/errs"
)

// CellKind tells how a cell's value was stored in the file.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellText
	CellNumber
)

// Cell is a single worksheet value. Number cells keep their raw value, so a
// date cell holds its Excel serial.
type Cell struct {
	Kind  CellKind
	Value string
}

// TextCell and NumberCell are shorthands used when building sheets in code.
func TextCell(s string) Cell   { return Cell{Kind: CellText, Value: s} }
func NumberCell(s string) Cell { return Cell{Kind: CellNumber, Value: s} }

// Sheet is a worksheet as a dense grid; Rows[0] is spreadsheet row 1.
type Sheet struct {
	Name string
	Rows [][]Cell
}

// Cell returns the cell at zero-based (row, col), or an empty cell when out of range.
func (s *Sheet) Cell(row, col int) Cell {
	if row < 0 || row >= len(s.Rows) || col < 0 || col >= len(s.Rows[row]) {
		return Cell{}
	}
	return s.Rows[row][col]
}

// Workbook is the in-memory form of a spreadsheet file, sheets in file order.
type Workbook struct {
	Sheets []Sheet
}

// LoadFile reads an .xlsx file from disk.
func LoadFile(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.KindInvalid, err, "open workbook %s", path)
	}
	defer f.Close()
	return fromFile(f)
}

// Load reads an .xlsx document from r.
func Load(r io.Reader) (*Workbook, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errs.Wrap(errs.KindInvalid, err, "open workbook")
	}
	defer f.Close()
	return fromFile(f)
}

func fromFile(f *excelize.File) (*Workbook, error) {
	wb := &Workbook{}
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, errs.Wrap(errs.KindInvalid, err, "read sheet %q", name)
		}
		sheet := Sheet{Name: name, Rows: make([][]Cell, len(rows))}
		for r, row := range rows {
			cells := make([]Cell, len(row))
			for c, v := range row {
				cells[c] = classifyCell(f, name, r, c, v)
			}
			sheet.Rows[r] = cells
		}
		wb.Sheets = append(wb.Sheets, sheet)
	}
	return wb, nil
}

func classifyCell(f *excelize.File, sheet string, r, c int, v string) Cell {
	if strings.TrimSpace(v) == "" {
		return Cell{}
	}
	ref, err := excelize.CoordinatesToCellName(c+1, r+1)
	if err != nil {
		return TextCell(v)
	}
	typ, err := f.GetCellType(sheet, ref)
	if err != nil {
		return TextCell(v)
	}
	switch typ {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeBool,
		excelize.CellTypeDate, excelize.CellTypeError:
		return TextCell(v)
	}
	if _, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
		return NumberCell(strings.TrimSpace(v))
	}
	return TextCell(v)
}

// String renders a cell for error messages.
func (c Cell) String() string {
	switch c.Kind {
	case CellText:
		return fmt.Sprintf("%q", c.Value)
	case CellNumber:
		return c.Value
	default:
		return "<empty>"
	}
}
