package textnorm

import "testing"

func TestUpper(t *testing.T) {
	cases := map[string]string{
		"":                       "",
		"concepto":               "CONCEPTO",
		"  Donación   mayo ":     "DONACION MAYO",
		"SALDO EN TESORERÍA":     "SALDO EN TESORERIA",
		"café club":              "CAFE CLUB",
		"Útiles de papelería":    "UTILES DE PAPELERIA",
		"Aporte\tmensual\nabril": "APORTE MENSUAL ABRIL",
	}
	for in, want := range cases {
		if got := Upper(in); got != want {
			t.Fatalf("Upper(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestContainsAny(t *testing.T) {
	if !ContainsAny("Total ingresos del mes", "TOTAL INGRESOS") {
		t.Fatalf("expected match")
	}
	if !ContainsAny("compra café", "CAFÉ") {
		t.Fatalf("expected accent-insensitive match")
	}
	if ContainsAny("Aporte mensual miembro 12345", "TOTAL", "", "SALDO") {
		t.Fatalf("unexpected match")
	}
}
