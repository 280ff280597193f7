package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// API holds per-endpoint forecast API metrics.
type API struct {
	latency    *prometheus.HistogramVec
	errors     *prometheus.CounterVec
	jobs       *prometheus.CounterVec
	rateLimits *prometheus.CounterVec
	streams    prometheus.Gauge
}

var (
	once       sync.Once
	defaultAPI *API
)

// Default returns the API metrics registered on the default registry.
func Default() *API {
	once.Do(func() { defaultAPI = NewAPI(prometheus.DefaultRegisterer) })
	return defaultAPI
}

// NewAPI registers the API metrics on reg.
func NewAPI(reg prometheus.Registerer) *API {
	f := promauto.With(reg)
	return &API{
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "demandcast",
				Subsystem: "api",
				Name:      "latency_seconds",
				Help:      "Latency of API endpoints",
				Buckets:   []float64{.01, .05, .1, .5, 1, 2.5, 5, 15, 60, 180},
			},
			[]string{"endpoint"},
		),
		errors: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "demandcast",
				Subsystem: "api",
				Name:      "errors_total",
				Help:      "Errors by API endpoint and kind",
			},
			[]string{"endpoint", "kind"},
		),
		jobs: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "demandcast",
				Subsystem: "api",
				Name:      "jobs_enqueued_total",
				Help:      "Background jobs accepted by type",
			},
			[]string{"type"},
		),
		rateLimits: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "demandcast",
				Subsystem: "api",
				Name:      "rate_limited_total",
				Help:      "Requests rejected by the rate limiter",
			},
			[]string{"route"},
		),
		streams: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "demandcast",
			Subsystem: "api",
			Name:      "progress_streams",
			Help:      "Open forecast progress websockets",
		}),
	}
}

// Observe records the latency of endpoint since start.
func (a *API) Observe(endpoint string, start time.Time) {
	a.latency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

// Error counts a failed call. kind is "client" or "server".
func (a *API) Error(endpoint, kind string) {
	a.errors.WithLabelValues(endpoint, kind).Inc()
}

func (a *API) JobEnqueued(jobType string) { a.jobs.WithLabelValues(jobType).Inc() }

func (a *API) RateLimited(route string) { a.rateLimits.WithLabelValues(route).Inc() }

// StreamOpened tracks an open progress stream. Call the returned func on close.
func (a *API) StreamOpened() func() {
	a.streams.Inc()
	return a.streams.Dec
}
