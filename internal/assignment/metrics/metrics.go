package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for claim assignment and the sweep.
type Metrics struct {
	ClaimsTotal        *prometheus.CounterVec
	QueueDepth         *prometheus.GaugeVec
	SweepExpiredTotal  prometheus.Counter
	SweepBreachedTotal prometheus.Counter
	SweepRunsTotal     prometheus.Counter
}

// New creates and registers all assignment metrics.
func New() *Metrics {
	return &Metrics{
		ClaimsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "verza_assignment_claims_total",
			Help: "Total claim attempts, by outcome",
		}, []string{"outcome"}),
		QueueDepth: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "verza_assignment_queue_depth",
			Help: "Jobs waiting per credential-type queue at last observation",
		}, []string{"credential_type"}),
		SweepExpiredTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verza_sweep_expired_claims_total",
			Help: "Total claims reaped by the expiry sweep",
		}),
		SweepBreachedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verza_sweep_sla_breaches_total",
			Help: "Total jobs flagged past their SLA deadline",
		}),
		SweepRunsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "verza_sweep_runs_total",
			Help: "Total sweep iterations",
		}),
	}
}

// ObserveClaim records one claim attempt.
func (m *Metrics) ObserveClaim(outcome string) {
	if m == nil {
		return
	}
	m.ClaimsTotal.WithLabelValues(outcome).Inc()
}

// SetQueueDepth records the current depth of one queue.
func (m *Metrics) SetQueueDepth(credType string, depth int64) {
	if m == nil {
		return
	}
	m.QueueDepth.WithLabelValues(credType).Set(float64(depth))
}

// ObserveSweep records one sweep iteration's counts.
func (m *Metrics) ObserveSweep(expired, breached int) {
	if m == nil {
		return
	}
	m.SweepRunsTotal.Inc()
	m.SweepExpiredTotal.Add(float64(expired))
	m.SweepBreachedTotal.Add(float64(breached))
}
