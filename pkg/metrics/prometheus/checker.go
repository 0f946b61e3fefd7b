package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/hsmwatch/pkg/checker"
	"github.com/marmos91/hsmwatch/pkg/metrics"
)

// checkerMetrics is the Prometheus implementation of checker.Metrics.
type checkerMetrics struct {
	checks        *prometheus.CounterVec
	checkDuration *prometheus.HistogramVec
	probeFailures prometheus.Counter
	queueDepth    prometheus.Gauge
}

// NewCheckerMetrics creates a new Prometheus-backed checker.Metrics
// instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewCheckerMetrics() checker.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &checkerMetrics{
		checks: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "hsmwatch_checks_total",
				Help: "Total number of HSM status checks by result",
			},
			[]string{"result"}, // "online", "offline", "error"
		),
		checkDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "hsmwatch_check_duration_milliseconds",
				Help: "Duration of HSM status checks in milliseconds",
				Buckets: []float64{
					0.1,  // cached stat
					0.5,
					1,
					5,
					10,   // cold stat
					50,
					100,  // stat(1) fallback
					500,
					1000,
				},
			},
			[]string{"result"},
		),
		probeFailures: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "hsmwatch_probe_failures_total",
				Help: "Total number of filesystem probe failures",
			},
		),
		queueDepth: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "hsmwatch_checker_queue_depth",
				Help: "Current number of tasks waiting in the checker pool",
			},
		),
	}
}

func (m *checkerMetrics) ObserveCheck(result string, duration time.Duration) {
	if m == nil {
		return
	}

	m.checks.WithLabelValues(result).Inc()
	m.checkDuration.WithLabelValues(result).Observe(duration.Seconds() * 1000)
}

func (m *checkerMetrics) RecordProbeFailure() {
	if m == nil {
		return
	}

	m.probeFailures.Inc()
}

func (m *checkerMetrics) RecordQueueDepth(depth int) {
	if m == nil {
		return
	}

	m.queueDepth.Set(float64(depth))
}
