package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/hsmwatch/pkg/metrics"
	"github.com/marmos91/hsmwatch/pkg/status"
)

// serviceMetrics is the Prometheus implementation of status.Metrics.
type serviceMetrics struct {
	lockContention prometheus.Counter
}

// NewServiceMetrics creates a new Prometheus-backed status.Metrics
// instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewServiceMetrics() status.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &serviceMetrics{
		lockContention: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "hsmwatch_lock_contention_total",
				Help: "Total number of status checks skipped because another attempt held the advisory lock",
			},
		),
	}
}

func (m *serviceMetrics) RecordLockContention() {
	if m == nil {
		return
	}

	m.lockContention.Inc()
}
