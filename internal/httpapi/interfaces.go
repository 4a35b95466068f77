package httpapi

import (
	"context"

	"github.com/google/uuid"

	"github.com/tinoosan/treasury/internal/audit"
	"github.com/tinoosan/treasury/internal/ledger"
)

// CatalogReader lists the classification catalogs.
type CatalogReader interface {
	ListIncomeSources(ctx context.Context) ([]ledger.IncomeSource, error)
	ListExpenseCategories(ctx context.Context) ([]ledger.ExpenseCategory, error)
}

// ClosureReader fetches a single month's closure.
type ClosureReader interface {
	ClosureByPeriod(ctx context.Context, p ledger.Period) (ledger.Closure, error)
}

// AuditReader returns the trail recorded for an entity.
type AuditReader interface {
	AuditTrail(ctx context.Context, entityID uuid.UUID) ([]audit.Entry, error)
}

// Reader groups the read-side store operations the handlers call directly.
type Reader interface {
	CatalogReader
	ClosureReader
	AuditReader
}

// ReadyChecker is implemented by stores that can report connectivity.
type ReadyChecker interface {
	Ready(ctx context.Context) error
}
