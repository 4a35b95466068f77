// Package metrics holds the Prometheus collectors for the treasury core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "treasury"

// Import row outcomes.
const (
	RowImported = "imported"
	RowSkipped  = "skipped"
	RowRejected = "rejected"
)

var (
	ImportRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_rows_total",
			Help:      "Worksheet rows processed by the importer, by outcome",
		},
		[]string{"outcome", "dry_run"},
	)
	ImportBalanceMismatches = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_balance_mismatches_total",
			Help:      "Declared balances that disagreed with the computed balance",
		},
	)
	MovementMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "movement_mutations_total",
			Help:      "Movement mutations by operation and result kind",
		},
		[]string{"op", "result"},
	)
	PeriodClosures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "period_closures_total",
			Help:      "Month-close attempts by result kind",
		},
		[]string{"result"},
	)
)

// Result labels an operation outcome: "ok" or the error kind.
func Result(kind string, err error) string {
	if err == nil {
		return "ok"
	}
	if kind == "" {
		return "error"
	}
	return kind
}

// DryRunLabel renders a bool label value.
func DryRunLabel(dry bool) string {
	if dry {
		return "true"
	}
	return "false"
}
