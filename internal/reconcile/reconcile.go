// Package reconcile decides whether a declared balance agrees with a computed one.
package reconcile

import (
	"fmt"

	"github.com/govalues/decimal"
)

// Policy compares balances with an exclusive threshold: a difference equal
// to Threshold does not match.
type Policy struct {
	Threshold decimal.Decimal
}

// Default tolerates differences strictly below one currency unit.
var Default = Policy{Threshold: decimal.One}

// Difference returns |expected - observed|.
func Difference(expected, observed decimal.Decimal) (decimal.Decimal, error) {
	d, err := expected.Sub(observed)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return d.Abs(), nil
}

// Within reports whether the balances match under p.
// An arithmetic overflow counts as a mismatch.
func (p Policy) Within(expected, observed decimal.Decimal) bool {
	d, err := Difference(expected, observed)
	if err != nil {
		return false
	}
	return d.Less(p.Threshold)
}

// MismatchMessage describes a failed comparison for warnings and test output.
func (p Policy) MismatchMessage(label string, expected, observed decimal.Decimal) string {
	diff, err := Difference(expected, observed)
	ds := diff.String()
	if err != nil {
		ds = "overflow"
	}
	return fmt.Sprintf("%s: expected %s, observed %s, difference %s (tolerance < %s)",
		label, expected, observed, ds, p.Threshold)
}

// Within applies the Default policy.
func Within(expected, observed decimal.Decimal) bool { return Default.Within(expected, observed) }

// MismatchMessage formats with the Default policy.
func MismatchMessage(label string, expected, observed decimal.Decimal) string {
	return Default.MismatchMessage(label, expected, observed)
}
