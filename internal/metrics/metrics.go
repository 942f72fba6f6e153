// Package metrics exposes pipeline counters through Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"SignalSentinel/internal/model"
)

// Recorder implements pipeline.Metrics using Prometheus.
type Recorder struct {
	cycleDuration  prometheus.Histogram
	signals        *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	patched        *prometheus.CounterVec
	published      *prometheus.CounterVec
	accuracy       prometheus.Gauge
	evaluatedTotal prometheus.Gauge
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		cycleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "sentinel_cycle_duration_seconds",
			Help:    "Duration of prediction cycles in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		signals: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_signals_total",
			Help: "Signals persisted, by instrument and signal",
		}, []string{"instrument", "signal"}),
		errorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_errors_total",
			Help: "Per-instrument failures, by operation and error kind",
		}, []string{"instrument", "op", "kind"}),
		patched: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_records_patched_total",
			Help: "Prediction records patched with an actual price",
		}, []string{"instrument"}),
		published: f.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_signals_published_total",
			Help: "Signal publications, by outcome",
		}, []string{"outcome"}),
		accuracy: f.NewGauge(prometheus.GaugeOpts{
			Name: "sentinel_accuracy_percent",
			Help: "Last computed accuracy percentage",
		}),
		evaluatedTotal: f.NewGauge(prometheus.GaugeOpts{
			Name: "sentinel_evaluated_records",
			Help: "Records counted by the last accuracy computation",
		}),
	}
}

func (r *Recorder) ObserveCycle(d time.Duration) {
	r.cycleDuration.Observe(d.Seconds())
}

func (r *Recorder) SignalEmitted(instrument string, signal model.Signal) {
	r.signals.WithLabelValues(instrument, string(signal)).Inc()
}

func (r *Recorder) Failure(instrument, op, kind string) {
	r.errorsTotal.WithLabelValues(instrument, op, kind).Inc()
}

func (r *Recorder) RecordsPatched(instrument string, n int) {
	r.patched.WithLabelValues(instrument).Add(float64(n))
}

func (r *Recorder) Published(ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	r.published.WithLabelValues(outcome).Inc()
}

// SetAccuracy records the summary; a no-data summary leaves the percentage untouched.
func (r *Recorder) SetAccuracy(s model.AccuracySummary) {
	r.evaluatedTotal.Set(float64(s.TotalEvaluated))
	if !s.NoData {
		r.accuracy.Set(s.AccuracyPercent)
	}
}
