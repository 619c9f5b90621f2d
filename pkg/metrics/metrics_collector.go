package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector 指标收集器
// 所有方法对 nil 接收者安全，未启用指标时可直接传 nil
type MetricsCollector struct {
	// HTTP 指标
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// 网关指标
	gatewayRequestsTotal   *prometheus.CounterVec
	gatewayRequestDuration *prometheus.HistogramVec

	// 业务指标
	pollResultsTotal *prometheus.CounterVec
	jobOrdersTotal   *prometheus.CounterVec
}

// NewMetricsCollector 在指定 Registerer 上创建指标收集器
func NewMetricsCollector(reg prometheus.Registerer) *MetricsCollector {
	factory := promauto.With(reg)
	return &MetricsCollector{
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		gatewayRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "facepay_gateway_requests_total",
				Help: "Total number of payment gateway requests",
			},
			[]string{"endpoint", "result"},
		),

		gatewayRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "facepay_gateway_request_duration_seconds",
				Help:    "Payment gateway request duration in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"endpoint"},
		),

		pollResultsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "facepay_poll_results_total",
				Help: "Outcomes of order status polling",
			},
			[]string{"outcome"},
		),

		jobOrdersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "facepay_job_orders_total",
				Help: "Orders processed by background jobs",
			},
			[]string{"job", "result"},
		),
	}
}

// RecordHTTPRequest 记录 HTTP 请求
func (m *MetricsCollector) RecordHTTPRequest(method, endpoint string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, endpoint, getStatusCategory(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordGatewayRequest 记录网关调用，result 取 ok / gateway_error / transport_error
func (m *MetricsCollector) RecordGatewayRequest(endpoint, result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.gatewayRequestsTotal.WithLabelValues(endpoint, result).Inc()
	m.gatewayRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsCollector) RecordPollResult(outcome string) {
	if m == nil {
		return
	}
	m.pollResultsTotal.WithLabelValues(outcome).Inc()
}

func (m *MetricsCollector) RecordJobOrder(job, result string) {
	if m == nil {
		return
	}
	m.jobOrdersTotal.WithLabelValues(job, result).Inc()
}

func getStatusCategory(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return strconv.Itoa(status)
	}
}

var (
	globalCollector *MetricsCollector
	once            sync.Once
)

// InitMetrics 在默认 Registerer 上初始化全局收集器
func InitMetrics() {
	once.Do(func() {
		globalCollector = NewMetricsCollector(prometheus.DefaultRegisterer)
	})
}

// GetGlobalCollector 未初始化时返回 nil
func GetGlobalCollector() *MetricsCollector {
	return globalCollector
}
