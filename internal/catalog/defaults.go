package catalog

import "github.com/tinoosan/treasury/internal/ledger"

// Def is a curated catalog entry.
type Def struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

// Default treasury account code the importer posts to.
const DefaultAccountCode = "BANCO-BCOL-001"

// Fallback buckets used when no classification rule matches.
const (
	IncomeFallbackCode  = "OTROS"
	ExpenseFallbackCode = "OTROS-GASTOS"
)

var curated = map[ledger.Direction][]Def{
	ledger.DirectionIncome: {
		{Code: "APORTE-MEN", Label: "Aportes mensuales"},
		{Code: "DONACION", Label: "Donaciones"},
		{Code: "VENTA-MERCH", Label: "Venta de merchandising"},
		{Code: "VENTA-CLUB-CAFE", Label: "Venta club café"},
		{Code: "VENTA-CLUB-CERV", Label: "Venta club cerveza"},
		{Code: "VENTA-CLUB-COMI", Label: "Venta club comida"},
		{Code: "EVENTO", Label: "Eventos"},
		{Code: "RENOVACION-MEM", Label: "Renovación de membresía"},
		{Code: IncomeFallbackCode, Label: "Otros ingresos"},
	},
	ledger.DirectionExpense: {
		{Code: "AYUDA-SOCIAL", Label: "Ayuda social"},
		{Code: "EVENTO-LOG", Label: "Eventos y logística"},
		{Code: "ADMIN-PAPEL", Label: "Papelería y útiles"},
		{Code: "ADMIN-TRANSP", Label: "Transporte"},
		{Code: "ADMIN-SERVICIOS", Label: "Servicios públicos"},
		{Code: "MANTENIMIENTO", Label: "Mantenimiento"},
		{Code: "COMPRA-CLUB-CAFE", Label: "Compras club café"},
		{Code: "COMPRA-CLUB-CERV", Label: "Compras club cerveza"},
		{Code: "COMPRA-CLUB-COMI", Label: "Compras club comida"},
		{Code: "COMPRA-MERCH", Label: "Compras de merchandising"},
		{Code: ExpenseFallbackCode, Label: "Otros gastos"},
	},
}

// DefaultsFor returns the curated entries for a direction, or all of them when d is nil.
func DefaultsFor(d *ledger.Direction) []Def {
	if d == nil {
		out := make([]Def, 0, len(curated[ledger.DirectionIncome])+len(curated[ledger.DirectionExpense]))
		out = append(out, curated[ledger.DirectionIncome]...)
		return append(out, curated[ledger.DirectionExpense]...)
	}
	return append([]Def(nil), curated[*d]...)
}
