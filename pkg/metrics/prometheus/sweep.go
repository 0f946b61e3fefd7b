package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/hsmwatch/pkg/metrics"
	"github.com/marmos91/hsmwatch/pkg/sweep"
)

// sweepMetrics is the Prometheus implementation of sweep.Metrics.
type sweepMetrics struct {
	runs          prometheus.Counter
	runDuration   prometheus.Histogram
	candidates    prometheus.Gauge
	flipped       prometheus.Counter
	skipped       prometheus.Counter
	errors        prometheus.Counter
	lastRunUnixTS prometheus.Gauge
}

// NewSweepMetrics creates a new Prometheus-backed sweep.Metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewSweepMetrics() sweep.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &sweepMetrics{
		runs: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "hsmwatch_sweep_runs_total",
				Help: "Total number of completed reconciliation sweeps",
			},
		),
		runDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name: "hsmwatch_sweep_duration_seconds",
				Help: "Duration of reconciliation sweeps in seconds",
				Buckets: []float64{
					0.1,
					0.5,
					1,
					5,
					30,
					60,   // sweeps over large archives
					300,
					1800,
				},
			},
		),
		candidates: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "hsmwatch_sweep_candidates",
				Help: "Number of online records examined by the last sweep",
			},
		),
		flipped: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "hsmwatch_sweep_flipped_total",
				Help: "Total number of records flipped from online to offline",
			},
		),
		skipped: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "hsmwatch_sweep_skipped_total",
				Help: "Total number of sweep candidates skipped",
			},
		),
		errors: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "hsmwatch_sweep_errors_total",
				Help: "Total number of sweep candidates that failed",
			},
		),
		lastRunUnixTS: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "hsmwatch_sweep_last_run_timestamp_seconds",
				Help: "Unix timestamp of the last completed sweep",
			},
		),
	}
}

func (m *sweepMetrics) ObserveSweep(stats sweep.Stats, duration time.Duration) {
	if m == nil {
		return
	}

	m.runs.Inc()
	m.runDuration.Observe(duration.Seconds())
	m.candidates.Set(float64(stats.Candidates))
	m.flipped.Add(float64(stats.Flipped))
	m.skipped.Add(float64(stats.Skipped))
	m.errors.Add(float64(stats.Errors))
	m.lastRunUnixTS.SetToCurrentTime()
}
