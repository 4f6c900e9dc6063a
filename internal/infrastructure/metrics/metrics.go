// Package metrics provides Prometheus metrics for canteen.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"canteen/internal/domain"
	"canteen/internal/identity"
)

var (
	// GuardDecisionsTotal counts route guard answers.
	GuardDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "canteen",
			Name:      "guard_decisions_total",
			Help:      "Total number of route guard decisions",
		},
		[]string{"outcome", "source"},
	)

	// PhaseTransitionsTotal counts resolver phase changes.
	PhaseTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "canteen",
			Name:      "identity_phase_transitions_total",
			Help:      "Total number of identity resolver phase transitions",
		},
		[]string{"phase"},
	)

	// BootstrapDuration measures how long the first resolution pass takes.
	BootstrapDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "canteen",
			Name:      "identity_bootstrap_duration_seconds",
			Help:      "Duration of identity bootstrap passes in seconds",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2, 3, 5, 10},
		},
		[]string{"phase"},
	)

	// QueryCacheTotal counts request cache lookups.
	QueryCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "canteen",
			Name:      "query_cache_total",
			Help:      "Total number of request cache lookups",
		},
		[]string{"result"},
	)

	// ChangeEventsTotal counts change feed events.
	ChangeEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "canteen",
			Name:      "change_events_total",
			Help:      "Total number of database change events received",
		},
		[]string{"table", "type"},
	)

	// OrdersPlacedTotal counts checkouts.
	OrdersPlacedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "canteen",
			Name:      "orders_placed_total",
			Help:      "Total number of orders placed",
		},
	)
)

// RecordGuardDecision records a guard answer.
func RecordGuardDecision(outcome identity.Outcome, source identity.Source) {
	GuardDecisionsTotal.WithLabelValues(outcome.String(), source.String()).Inc()
}

// RecordCacheLookup records a request cache hit or miss.
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	QueryCacheTotal.WithLabelValues(result).Inc()
}

// RecordChangeEvent records a change feed event.
func RecordChangeEvent(ev domain.ChangeEvent) {
	ChangeEventsTotal.WithLabelValues(ev.Table, string(ev.Type)).Inc()
}

// RecordOrderPlaced records a checkout.
func RecordOrderPlaced() {
	OrdersPlacedTotal.Inc()
}

// IdentityObserver reports resolver lifecycle events. Implements
// identity.Observer.
type IdentityObserver struct{}

func (IdentityObserver) PhaseChanged(phase identity.Phase) {
	PhaseTransitionsTotal.WithLabelValues(phase.String()).Inc()
}

func (IdentityObserver) BootstrapFinished(elapsed time.Duration, phase identity.Phase) {
	BootstrapDuration.WithLabelValues(phase.String()).Observe(elapsed.Seconds())
}

// RegisterActiveResolvers exposes the number of mounted resolvers.
func RegisterActiveResolvers(count func() int) {
	promauto.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: "canteen",
			Name:      "identity_active_resolvers",
			Help:      "Number of mounted identity resolvers",
		},
		func() float64 { return float64(count()) },
	)
}
