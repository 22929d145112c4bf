package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// IPNMetrics records outcomes of incoming payment notifications.
type IPNMetrics struct {
	outcomes       *prometheus.CounterVec
	verifyDuration *prometheus.HistogramVec
}

// NewIPNMetrics registers the IPN metrics on the provided registerer.
func NewIPNMetrics(reg prometheus.Registerer) *IPNMetrics {
	if reg == nil {
		return &IPNMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ipn_outcomes_total",
		Help: "Processed payment notifications by outcome.",
	}, []string{"outcome"})
	verifyDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ipn_verify_duration_seconds",
		Help:    "Duration of gateway verification calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})
	reg.MustRegister(outcomes, verifyDuration)
	return &IPNMetrics{
		outcomes:       outcomes,
		verifyDuration: verifyDuration,
	}
}

// IncOutcome increments the counter for the named processing outcome.
func (m *IPNMetrics) IncOutcome(outcome string) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveVerify records the duration of a gateway verification call.
func (m *IPNMetrics) ObserveVerify(result string, duration time.Duration) {
	if m == nil || m.verifyDuration == nil {
		return
	}
	m.verifyDuration.WithLabelValues(normalizeLabel(result)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
