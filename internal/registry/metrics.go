package registry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts submission outcomes. A nil *Metrics is a valid no-op, so
// tests and tools can run without a registry.
type Metrics struct {
	submissions   *prometheus.CounterVec
	probeAttempts prometheus.Histogram
	duration      prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "passlink",
			Subsystem: "registry",
			Name:      "submissions_total",
			Help:      "Terminal submission outcomes by kind.",
		}, []string{"outcome"}),
		probeAttempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "passlink",
			Subsystem: "registry",
			Name:      "probe_attempts",
			Help:      "Probe attempts used per ambiguous submission.",
			Buckets:   prometheus.LinearBuckets(0, 1, 10),
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "passlink",
			Subsystem: "registry",
			Name:      "submit_duration_seconds",
			Help:      "Wall time from submission start to a terminal state.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
	}
	reg.MustRegister(m.submissions, m.probeAttempts, m.duration)
	return m
}

func (m *Metrics) observeOutcome(outcome string, started time.Time) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
	m.duration.Observe(time.Since(started).Seconds())
}

func (m *Metrics) observeProbes(attempts int) {
	if m == nil {
		return
	}
	m.probeAttempts.Observe(float64(attempts))
}
