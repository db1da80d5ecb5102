package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 上游请求结果标签取值。
const (
	OutcomeOK            = "ok"
	OutcomeTransportErr  = "transport_error"
	OutcomeResponseErr   = "response_error"
	OutcomeDiscardedLate = "discarded"
)

var (
	backendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "portfolio",
			Subsystem: "backend",
			Name:      "requests_total",
			Help:      "调用上游 portfolio API 的次数，按资源与结果划分。",
		},
		[]string{"resource", "outcome"},
	)

	backendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "portfolio",
			Subsystem: "backend",
			Name:      "request_duration_seconds",
			Help:      "调用上游 portfolio API 的耗时分布（秒）。",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"resource"},
	)

	pageMountsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "portfolio",
			Subsystem: "page",
			Name:      "section_loads_total",
			Help:      "页面挂载时各数据区块的加载结果。",
		},
		[]string{"page", "resource", "outcome"},
	)
)

// ObserveBackendRequest 记录一次上游调用。
func ObserveBackendRequest(resource, outcome string, seconds float64) {
	backendRequestsTotal.WithLabelValues(resource, outcome).Inc()
	backendRequestDuration.WithLabelValues(resource).Observe(seconds)
}

// ObserveSectionLoad 记录页面某个区块在本次挂载中的结果。
func ObserveSectionLoad(page, resource, outcome string) {
	pageMountsTotal.WithLabelValues(page, resource, outcome).Inc()
}
