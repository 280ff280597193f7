package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	recordsIngested *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	algorithmRuns   *prometheus.CounterVec
	lastAccuracy    *prometheus.GaugeVec
	algorithmTime   *prometheus.HistogramVec
	latency         *prometheus.HistogramVec
}

// New creates a recorder on the default registry.
func New() *Recorder { return NewWithRegisterer(prometheus.DefaultRegisterer) }

// NewWithRegisterer creates a recorder on reg. Tests pass a fresh registry.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		recordsIngested: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "demandcast_records_ingested_total",
				Help: "Total number of records written to the record store",
			},
			[]string{"source"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "demandcast_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		algorithmRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "demandcast_algorithm_runs_total",
				Help: "Algorithm runs by outcome",
			},
			[]string{"algorithm", "result"},
		),
		lastAccuracy: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "demandcast_algorithm_last_accuracy",
				Help: "Accuracy of the most recent run per algorithm",
			},
			[]string{"algorithm"},
		),
		algorithmTime: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "demandcast_algorithm_duration_seconds",
				Help:    "Fit and forecast time per algorithm",
				Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 15},
			},
			[]string{"algorithm"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "demandcast_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordRecordsIngested counts records stored from a source.
func (r *Recorder) RecordRecordsIngested(source string, n int) {
	r.recordsIngested.WithLabelValues(source).Add(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordAlgorithmRun records one orchestrated algorithm run.
func (r *Recorder) RecordAlgorithmRun(algorithm string, accuracy float64, seconds float64, degraded bool) {
	result := "ok"
	if degraded {
		result = "degraded"
	} else {
		r.lastAccuracy.WithLabelValues(algorithm).Set(accuracy)
	}
	r.algorithmRuns.WithLabelValues(algorithm, result).Inc()
	r.algorithmTime.WithLabelValues(algorithm).Observe(seconds)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards every observation.
type Nop struct{}

func (Nop) RecordRecordsIngested(string, int)                 {}
func (Nop) RecordError(string)                                {}
func (Nop) RecordAlgorithmRun(string, float64, float64, bool) {}
func (Nop) RecordLatency(string, float64)                     {}
