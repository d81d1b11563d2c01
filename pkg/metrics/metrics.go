package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 业务与 HTTP 指标
//
// 使用独立 Registry，测试中可多次创建而不冲突。
// 所有方法对 nil 接收者安全。
type Metrics struct {
	registry *prometheus.Registry

	transitions   *prometheus.CounterVec
	depFailures   *prometheus.CounterVec
	notifications *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	httpInFlight  prometheus.Gauge
}

// New 创建并注册全部指标
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pisqre_assignment_transitions_total",
				Help: "Assignment status transitions",
			},
			[]string{"from", "to"},
		),
		depFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pisqre_dependency_failures_total",
				Help: "Failures of best-effort side effects (email, counters, notifications)",
			},
			[]string{"dependency"},
		),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pisqre_notifications_emitted_total",
				Help: "Notifications persisted by type",
			},
			[]string{"type"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pisqre_http_request_duration_seconds",
				Help:    "HTTP request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		httpInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "pisqre_http_requests_in_flight",
				Help: "Requests currently being served",
			},
		),
	}

	reg.MustRegister(
		m.transitions,
		m.depFailures,
		m.notifications,
		m.httpDuration,
		m.httpInFlight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler /metrics 暴露端点
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry 供测试读取
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) DependencyFailure(dep string) {
	if m == nil {
		return
	}
	m.depFailures.WithLabelValues(dep).Inc()
}

func (m *Metrics) NotificationEmitted(typ string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(typ).Inc()
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// InFlight 返回请求结束时调用的回调
func (m *Metrics) InFlight() func() {
	if m == nil {
		return func() {}
	}
	m.httpInFlight.Inc()
	return m.httpInFlight.Dec
}
