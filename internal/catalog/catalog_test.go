package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/treasury/internal/ledger"
)

func TestSeedAndLookup(t *testing.T) {
	income, expense := Seed()
	snap := NewSnapshot(income, expense)
	ni, ne := snap.Len()
	assert.Equal(t, len(DefaultsFor(ptr(ledger.DirectionIncome))), ni)
	assert.Equal(t, len(DefaultsFor(ptr(ledger.DirectionExpense))), ne)

	id, ok := snap.Lookup(ledger.DirectionIncome, "donacion")
	require.True(t, ok)
	assert.Equal(t, income[1].ID, id)

	_, ok = snap.Lookup(ledger.DirectionExpense, "DONACION")
	assert.False(t, ok, "income codes must not resolve as expense categories")

	_, ok = snap.Lookup(ledger.DirectionExpense, ExpenseFallbackCode)
	assert.True(t, ok)
}

func TestDefaultsForAll(t *testing.T) {
	all := DefaultsFor(nil)
	assert.Len(t, all, len(curated[ledger.DirectionIncome])+len(curated[ledger.DirectionExpense]))
}

func ptr(d ledger.Direction) *ledger.Direction { return &d }
