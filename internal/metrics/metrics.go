// Package metrics exposes Prometheus collectors for the stores and the
// filter engine.
//
// Usage:
//
//	// Record a store mutation
//	metrics.RecordMutation("groups", "create", err)
//
//	// Record a filter pass
//	metrics.RecordFilterPass(visible, 1500*time.Microsecond)
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StoreMutationsTotal counts store operations by store, operation and outcome.
	StoreMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardfinder_store_mutations_total",
			Help: "Total number of ownership and group store mutations",
		},
		[]string{"store", "op", "result"},
	)

	// PersistenceFailuresTotal counts swallowed substrate read/write failures.
	PersistenceFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardfinder_persistence_failures_total",
			Help: "Persistence read/write failures recovered without surfacing to callers",
		},
		[]string{"store", "direction"},
	)

	// FilterPassDuration tracks how long one visibility pass over the catalog takes.
	FilterPassDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cardfinder_filter_pass_duration_seconds",
			Help:    "Duration of a full filter pass over the catalog",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
	)

	// VisibleCards is the card count of the most recent filter pass.
	VisibleCards = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cardfinder_visible_cards",
			Help: "Number of cards visible after the most recent filter pass",
		},
	)

	// CatalogCards is the size of the loaded catalog.
	CatalogCards = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cardfinder_catalog_cards",
			Help: "Number of cards in the loaded catalog",
		},
	)
)

// RecordMutation records the outcome of a store operation.
func RecordMutation(store, op string, err error) {
	result := "ok"
	if err != nil {
		result = "rejected"
	}
	StoreMutationsTotal.WithLabelValues(store, op, result).Inc()
}

// RecordPersistenceFailure records a swallowed read or write failure.
func RecordPersistenceFailure(store, direction string) {
	PersistenceFailuresTotal.WithLabelValues(store, direction).Inc()
}

// RecordFilterPass records one full filter pass.
func RecordFilterPass(visible int, d time.Duration) {
	FilterPassDuration.Observe(d.Seconds())
	VisibleCards.Set(float64(visible))
}

// RecordCatalogSize records the size of a freshly loaded catalog.
func RecordCatalogSize(n int) {
	CatalogCards.Set(float64(n))
}
