package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestAPIMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAPI(reg)

	m.Observe("forecast", time.Now().Add(-time.Second))
	m.Error("forecast", "client")
	m.Error("forecast", "client")
	m.JobEnqueued("forecast")
	m.RateLimited("/api/forecast")
	done := m.StreamOpened()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.errors.WithLabelValues("forecast", "client")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobs.WithLabelValues("forecast")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rateLimits.WithLabelValues("/api/forecast")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.streams))
	done()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.streams))
	assert.Equal(t, 1, testutil.CollectAndCount(m.latency))
}
