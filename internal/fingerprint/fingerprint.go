// Package fingerprint derives the idempotency key of an imported ledger row.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/govalues/decimal"

	"github.com/tinoosan/treasury/internal/ledger"
)

// Input holds the fields that define a raw worksheet row.
type Input struct {
	Date            time.Time
	Description     string
	Direction       ledger.Direction
	Amount          decimal.Decimal
	DeclaredBalance *decimal.Decimal
	Sheet           string
}

// Compute returns the lowercase hex SHA-256 of
// "YYYY-MM-DD|description|direction|amount|declared|sheet".
// Decimals are trimmed of trailing zeros so 1000 and 1000.00 hash alike.
func Compute(in Input) string {
	declared := ""
	if in.DeclaredBalance != nil {
		declared = in.DeclaredBalance.Trim(0).String()
	}
	payload := strings.Join([]string{
		in.Date.Format(time.DateOnly),
		strings.TrimSpace(in.Description),
		string(in.Direction),
		in.Amount.Trim(0).String(),
		declared,
		in.Sheet,
	}, "|")
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}
