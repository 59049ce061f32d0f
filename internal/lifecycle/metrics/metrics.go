package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for lifecycle transitions.
type Metrics struct {
	TransitionsTotal   *prometheus.CounterVec
	EscrowOpsTotal     *prometheus.CounterVec
	TransitionDuration *prometheus.HistogramVec
	CASConflictsTotal  prometheus.Counter
}

// New creates and registers all lifecycle metrics.
func New() *Metrics {
	return &Metrics{
		TransitionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "verza_lifecycle_transitions_total",
			Help: "Total lifecycle transitions applied, by event and resulting status",
		}, []string{"event", "to"}),
		EscrowOpsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "verza_escrow_ops_total",
			Help: "Total escrow ledger operations, by operation and outcome",
		}, []string{"op", "outcome"}),
		TransitionDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "verza_lifecycle_transition_duration_seconds",
			Help:    "Latency of lifecycle transitions including escrow calls",
			Buckets: prometheus.DefBuckets,
		}, []string{"event"}),
		CASConflictsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verza_lifecycle_cas_conflicts_total",
			Help: "Total compare-and-swap version conflicts observed",
		}),
	}
}

// ObserveTransition records one applied transition.
func (m *Metrics) ObserveTransition(event, to string, d time.Duration) {
	if m == nil {
		return
	}
	m.TransitionsTotal.WithLabelValues(event, to).Inc()
	m.TransitionDuration.WithLabelValues(event).Observe(d.Seconds())
}

// ObserveEscrowOp records one ledger call.
func (m *Metrics) ObserveEscrowOp(op, outcome string) {
	if m == nil {
		return
	}
	m.EscrowOpsTotal.WithLabelValues(op, outcome).Inc()
}

// ObserveCASConflict records one stale-version retry.
func (m *Metrics) ObserveCASConflict() {
	if m == nil {
		return
	}
	m.CASConflictsTotal.Inc()
}
