package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 乐观更新结果
const (
	OutcomeApplied    = "applied"
	OutcomeConfirmed  = "confirmed"
	OutcomeRolledBack = "rolled_back"
	OutcomeDiscarded  = "discarded"
)

// MetricsCollector 客户端指标收集器
// 所有方法对 nil 接收者安全
type MetricsCollector struct {
	// API 请求指标
	apiRequestsTotal   *prometheus.CounterVec
	apiRequestDuration *prometheus.HistogramVec

	// 乐观更新指标
	optimisticTotal *prometheus.CounterVec

	// 缓存指标
	cacheHitsTotal   *prometheus.CounterVec
	cacheMissesTotal *prometheus.CounterVec

	// 未读数轮询
	unreadPollErrors *prometheus.CounterVec
}

// NewMetricsCollector 在 reg 上注册并创建指标收集器
func NewMetricsCollector(reg prometheus.Registerer) *MetricsCollector {
	factory := promauto.With(reg)
	return &MetricsCollector{
		apiRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forum_api_requests_total",
				Help: "Total number of forum API requests",
			},
			[]string{"method", "route", "status"},
		),

		apiRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "forum_api_request_duration_seconds",
				Help:    "Forum API request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		optimisticTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forum_optimistic_mutations_total",
				Help: "Optimistic mutations by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),

		cacheHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forum_cache_hits_total",
				Help: "Local cache hits",
			},
			[]string{"cache"},
		),

		cacheMissesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forum_cache_misses_total",
				Help: "Local cache misses, including stale entries",
			},
			[]string{"cache"},
		),

		unreadPollErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forum_unread_poll_errors_total",
				Help: "Failed unread count fetches",
			},
			[]string{"counter"},
		),
	}
}

// RecordAPIRequest 记录 API 请求, status 为 0 表示传输错误
func (m *MetricsCollector) RecordAPIRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.apiRequestsTotal.WithLabelValues(method, route, getStatusCategory(status)).Inc()
	m.apiRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordOptimistic 记录乐观更新结果
func (m *MetricsCollector) RecordOptimistic(kind, outcome string) {
	if m == nil {
		return
	}
	m.optimisticTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordCacheLookup 记录缓存命中/未命中
func (m *MetricsCollector) RecordCacheLookup(cache string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHitsTotal.WithLabelValues(cache).Inc()
	} else {
		m.cacheMissesTotal.WithLabelValues(cache).Inc()
	}
}

// RecordUnreadPollError 记录未读数拉取失败
func (m *MetricsCollector) RecordUnreadPollError(counter string) {
	if m == nil {
		return
	}
	m.unreadPollErrors.WithLabelValues(counter).Inc()
}

// getStatusCategory 获取状态分类
func getStatusCategory(status int) string {
	switch {
	case status == 0:
		return "error"
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500:
		return "5xx"
	default:
		return strconv.Itoa(status)
	}
}
