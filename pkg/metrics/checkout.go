package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records duration and outcomes of checkout reconciliation.
type CheckoutMetrics struct {
	duration  *prometheus.HistogramVec
	outcomes  *prometheus.CounterVec
	conflicts prometheus.Counter
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_stage_duration_seconds",
		Help:    "Duration of checkout stages in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_outcomes_total",
		Help: "Checkout attempts by outcome.",
	}, []string{"outcome"})
	conflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "checkout_lock_conflicts_total",
		Help: "Checkout attempts rejected because another attempt held the lock.",
	})
	reg.MustRegister(duration, outcomes, conflicts)
	return &CheckoutMetrics{
		duration:  duration,
		outcomes:  outcomes,
		conflicts: conflicts,
	}
}

// ObserveStage records the duration of the named checkout stage.
func (m *CheckoutMetrics) ObserveStage(stage string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(stage)).Observe(duration.Seconds())
}

// IncOutcome increments the counter for the named outcome.
func (m *CheckoutMetrics) IncOutcome(outcome string) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncLockConflict counts an attempt rejected by the busy lock.
func (m *CheckoutMetrics) IncLockConflict() {
	if m == nil || m.conflicts == nil {
		return
	}
	m.conflicts.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
