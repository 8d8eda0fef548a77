// Package metrics counts backtest jobs and anomalies on a dedicated prometheus registry which
// can be written out in the node exporter textfile format.
package metrics

import (
	"fmt"

	"github.com/aouyang1/basinflag/backtest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// job statuses
const (
	StatusOK       = "ok"
	StatusSkipped  = "skipped"
	StatusFailed   = "failed"
	StatusCanceled = "canceled"
)

type Metrics struct {
	registry *prometheus.Registry

	JobsTotal      *prometheus.CounterVec
	AnomaliesTotal *prometheus.CounterVec
	FoldSeconds    prometheus.Histogram
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		JobsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "basinflag_jobs_total",
				Help: "Total backtest jobs by variable and outcome",
			},
			[]string{"variable", "status"},
		),
		AnomaliesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "basinflag_anomalies_total",
				Help: "Total observations flagged above the forecast upper bound",
			},
			[]string{"variable"},
		),
		FoldSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "basinflag_fold_seconds",
				Help:    "Time to fit and test a single backtest fold in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// JobFinished counts a job outcome
func (m *Metrics) JobFinished(variable, status string) {
	m.JobsTotal.WithLabelValues(variable, status).Inc()
}

// ObserveResult records the anomalies and fold timings of a successful job
func (m *Metrics) ObserveResult(res *backtest.Result) {
	m.AnomaliesTotal.WithLabelValues(res.Variable).Add(float64(res.NumAnomalies()))
	for _, f := range res.Folds {
		m.FoldSeconds.Observe(f.Elapsed.Seconds())
	}
}

// WriteTextfile atomically writes every metric to the file
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("unable to write metrics textfile, %w", err)
	}
	return nil
}
