package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsCollector(reg)

	m.RecordAPIRequest("GET", "/v1.0/topics", 200, 10*time.Millisecond)
	m.RecordAPIRequest("GET", "/v1.0/topics", 503, 10*time.Millisecond)
	m.RecordAPIRequest("POST", "/v1.0/login", 0, time.Millisecond)
	m.RecordOptimistic("topic_vote", OutcomeRolledBack)
	m.RecordCacheLookup("chat", true)
	m.RecordCacheLookup("chat", false)
	m.RecordUnreadPollError("chat")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.apiRequestsTotal.WithLabelValues("GET", "/v1.0/topics", "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.apiRequestsTotal.WithLabelValues("GET", "/v1.0/topics", "5xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.apiRequestsTotal.WithLabelValues("POST", "/v1.0/login", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.optimisticTotal.WithLabelValues("topic_vote", OutcomeRolledBack)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheHitsTotal.WithLabelValues("chat")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheMissesTotal.WithLabelValues("chat")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.unreadPollErrors.WithLabelValues("chat")))
}

func TestNilCollectorIsSafe(t *testing.T) {
	var m *MetricsCollector
	assert.NotPanics(t, func() {
		m.RecordAPIRequest("GET", "/", 200, time.Millisecond)
		m.RecordOptimistic("x", OutcomeApplied)
		m.RecordCacheLookup("x", true)
		m.RecordUnreadPollError("x")
	})
}
