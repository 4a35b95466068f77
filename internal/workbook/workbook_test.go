package workbook

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/govalues/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/tinoosan/treasury/internal/errs"
	"github.com/tinoosan/treasury/internal/ledger"
)

func TestParseSheetName(t *testing.T) {
	tests := []struct {
		name string
		want ledger.Period
		ok   bool
	}{
		{"CORTE MAYO - 24", ledger.Period{Year: 2024, Month: 5}, true},
		{"CORTE A NOVIEMBRE 2025", ledger.Period{Year: 2025, Month: 11}, true},
		{"CORTE NOVIEMBRE 30-25", ledger.Period{Year: 2025, Month: 11}, true},
		{"corte a setiembre 2024", ledger.Period{Year: 2024, Month: 9}, true},
		{"Corte Diciembre.23", ledger.Period{Year: 2023, Month: 12}, true},
		{"RESUMEN 2024", ledger.Period{}, false},
		{"CORTE MAYOS 24", ledger.Period{}, false},
		{"CORTE MAYO", ledger.Period{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseSheetName(tt.name)
		assert.Equal(t, tt.ok, ok, tt.name)
		assert.Equal(t, tt.want, got, tt.name)
	}
}

func TestDetectLedgerSheetsOrdersChronologically(t *testing.T) {
	wb := &Workbook{Sheets: []Sheet{
		{Name: "CORTE JUNIO - 24"},
		{Name: "Notas"},
		{Name: "CORTE MAYO - 24"},
		{Name: "CORTE ENERO 2025"},
	}}
	got := DetectLedgerSheets(wb)
	require.Len(t, got, 3)
	assert.Equal(t, "CORTE MAYO - 24", got[0].Sheet.Name)
	assert.Equal(t, "CORTE JUNIO - 24", got[1].Sheet.Name)
	assert.Equal(t, "CORTE ENERO 2025", got[2].Sheet.Name)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		cell Cell
		want string
	}{
		{TextCell("$1.000,50"), "1000.50"},
		{TextCell("1000"), "1000"},
		{TextCell("1000,00"), "1000"},
		{TextCell("$ 2.500.000"), "2500000"},
		{TextCell("1 500,25"), "1500.25"},
		{NumberCell("1234.5"), "1234.5"},
		{NumberCell("1.5E3"), "1500"},
	}
	for _, tt := range tests {
		got, err := ParseAmount(tt.cell)
		require.NoError(t, err, tt.cell.String())
		assert.Zero(t, got.Cmp(decimal.MustParse(tt.want)), "%s parsed as %s", tt.cell, got)
	}

	_, err := ParseAmount(Cell{})
	assert.Error(t, err)
	_, err = ParseAmount(TextCell("n/a"))
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)
	for _, c := range []Cell{
		NumberCell("45415"),
		TextCell("03/05/2024"),
		TextCell("3/5/2024"),
		TextCell("2024-05-03"),
	} {
		got, err := ParseDate(c)
		require.NoError(t, err, c.String())
		assert.True(t, want.Equal(got), "%s parsed as %s", c, got)
	}
	_, err := ParseDate(TextCell("mayo"))
	assert.Error(t, err)
	_, err = ParseDate(Cell{})
	assert.Error(t, err)
}

func TestIsSummaryRow(t *testing.T) {
	assert.True(t, IsSummaryRow("TOTAL INGRESOS"))
	assert.True(t, IsSummaryRow("Saldo en Tesorería a la fecha"))
	assert.True(t, IsSummaryRow("SALDO EFECTIVO MES ANTERIOR"))
	assert.True(t, IsSummaryRow("egresos"))
	assert.False(t, IsSummaryRow("Egresos varios de oficina"))
	assert.False(t, IsSummaryRow("Aporte mensual miembro 12345"))
}

func ledgerSheet() *Sheet {
	return &Sheet{Name: "CORTE MAYO - 24", Rows: [][]Cell{
		{TextCell("INFORME TESORERIA")},
		{},
		{TextCell("Fecha"), TextCell("Concepto"), TextCell("Ingresos"), TextCell("Egresos"), TextCell("Saldo")},
		{Cell{}, TextCell("SALDO EFECTIVO MES ANTERIOR"), Cell{}, Cell{}, NumberCell("2000")},
		{TextCell("02/05/2024"), TextCell("Aporte mensual miembro 12345"), TextCell("$1.000,00"), Cell{}, NumberCell("3000")},
		{TextCell("03/05/2024"), TextCell("Compra café"), Cell{}, NumberCell("250.5"), NumberCell("2749.5")},
		{TextCell("04/05/2024"), TextCell("Fila ambigua"), NumberCell("10"), NumberCell("10")},
		{TextCell("05/05/2024"), TextCell("Fila vacía"), Cell{}, Cell{}},
		{TextCell("fecha mala"), TextCell("Donación"), NumberCell("100")},
		{Cell{}, Cell{}, NumberCell("999")},
		{Cell{}, TextCell("TOTAL INGRESOS"), NumberCell("1000")},
		{Cell{}, TextCell("SALDO EN TESORERIA A LA FECHA"), Cell{}, Cell{}, NumberCell("2749.5")},
	}}
}

func TestExtractRows(t *testing.T) {
	ex, err := ExtractRows(ledgerSheet())
	require.NoError(t, err)
	assert.Equal(t, 2, ex.Header.Row)
	assert.Equal(t, 4, ex.Header.Balance)
	require.NotNil(t, ex.DeclaredOpening)
	assert.Equal(t, "2000", ex.DeclaredOpening.Trim(0).String())

	require.Len(t, ex.Rows, 2)
	first := ex.Rows[0]
	assert.Equal(t, 5, first.Number)
	assert.Equal(t, ledger.DirectionIncome, first.Direction)
	assert.Equal(t, "1000", first.Amount.Trim(0).String())
	assert.Equal(t, "Aporte mensual miembro 12345", first.Description)
	require.NotNil(t, first.DeclaredBalance)
	assert.Equal(t, "3000", first.DeclaredBalance.Trim(0).String())

	second := ex.Rows[1]
	assert.Equal(t, ledger.DirectionExpense, second.Direction)
	assert.Equal(t, "250.5", second.Amount.Trim(0).String())
}

func TestExtractRowsWithoutHeader(t *testing.T) {
	_, err := ExtractRows(&Sheet{Name: "CORTE MAYO - 24", Rows: [][]Cell{{TextCell("FECHA"), TextCell("CONCEPTO")}}})
	assert.ErrorIs(t, err, ErrNoHeader)
}

func TestLoadReadsExcelizeWorkbook(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := "CORTE MAYO - 24"
	_, err := f.NewSheet(sheet)
	require.NoError(t, err)
	require.NoError(t, f.DeleteSheet("Sheet1"))
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"FECHA", "CONCEPTO", "INGRESOS", "EGRESOS", "SALDO"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC), "Donación", 1500.25, nil, 1500.25}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	wb, err := Load(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, wb.Sheets, 1)
	s := &wb.Sheets[0]
	assert.Equal(t, CellText, s.Cell(1, 1).Kind)
	assert.Equal(t, CellNumber, s.Cell(1, 0).Kind)
	assert.Equal(t, CellNumber, s.Cell(1, 2).Kind)

	ex, err := ExtractRows(s)
	require.NoError(t, err)
	require.Len(t, ex.Rows, 1)
	assert.Equal(t, time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC), ex.Rows[0].Date)
	assert.Equal(t, "1500.25", ex.Rows[0].Amount.String())
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.xlsx"))
	require.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.xlsx")
	require.NoError(t, os.WriteFile(bad, []byte("not a zip"), 0o600))
	_, err = LoadFile(bad)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrInvalid))
}
