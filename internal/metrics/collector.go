package metrics

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// prometheusCollector 基于 Prometheus 的指标收集器实现
type prometheusCollector struct {
	name     string
	registry *prometheus.Registry
	config   *Config
	mu       sync.RWMutex

	// 限流决策指标
	decisionsTotal     *prometheus.CounterVec
	evaluationDuration *prometheus.HistogramVec
	storeErrorsTotal   *prometheus.CounterVec
	escalationsTotal   *prometheus.CounterVec
	notificationsTotal *prometheus.CounterVec

	// 熔断器指标
	breakerState        *prometheus.GaugeVec
	breakerStateChanges *prometheus.CounterVec

	// HTTP 服务器指标
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	localRejectionsTotal *prometheus.CounterVec
}

// NewPrometheusCollectorWithRegistry 创建使用指定注册器的 Prometheus 指标收集器实例
func NewPrometheusCollectorWithRegistry(config *Config, registry *prometheus.Registry) (MetricsCollector, error) {
	if config == nil {
		return nil, ErrNilConfig
	}
	if registry == nil {
		return nil, fmt.Errorf("registry cannot be nil")
	}

	collector := &prometheusCollector{
		name:     PrometheusType,
		registry: registry,
		config:   config,
	}

	if err := collector.initMetrics(); err != nil {
		return nil, err
	}

	return collector, nil
}

// initMetrics 初始化所有 Prometheus 指标
func (c *prometheusCollector) initMetrics() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// 构建指标名称前缀
	prefix := c.config.Namespace
	if c.config.Subsystem != "" {
		prefix = c.config.Namespace + "_" + c.config.Subsystem
	}

	c.decisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_decisions_total",
			Help: "Total number of rate limit decisions",
		},
		[]string{"profile", "strategy", "outcome"},
	)

	// 决策耗时以存储往返为主，桶从亚毫秒级开始
	c.evaluationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_evaluation_duration_seconds",
			Help:    "Rate limit evaluation duration in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		},
		[]string{"profile", "strategy"},
	)

	c.storeErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_store_errors_total",
			Help: "Total number of counter store failures",
		},
		[]string{"profile", "operation"},
	)

	c.escalationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_abuse_escalations_total",
			Help: "Total number of potential attack escalations",
		},
		[]string{"profile"},
	)

	c.notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_escalation_notifications_total",
			Help: "Total number of escalation webhook notifications by outcome",
		},
		[]string{"outcome"},
	)

	c.breakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: prefix + "_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	c.breakerStateChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_circuit_breaker_state_changes_total",
			Help: "Total number of circuit breaker state changes",
		},
		[]string{"name", "from_state", "to_state"},
	)

	c.httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"server_name", "method", "path", "status_code"},
	)

	c.httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"server_name", "method", "path"},
	)

	c.localRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_local_rate_limit_rejections_total",
			Help: "Total number of in-process rate limit rejections",
		},
		[]string{"server_name"},
	)

	// 注册所有指标到注册器
	collectors := []prometheus.Collector{
		c.decisionsTotal,
		c.evaluationDuration,
		c.storeErrorsTotal,
		c.escalationsTotal,
		c.notificationsTotal,
		c.breakerState,
		c.breakerStateChanges,
		c.httpRequestsTotal,
		c.httpRequestDuration,
		c.localRejectionsTotal,
	}

	for _, collector := range collectors {
		if err := c.registry.Register(collector); err != nil {
			return err
		}
	}

	return nil
}

func (c *prometheusCollector) RecordDecision(profile, strategy, outcome string) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	c.decisionsTotal.WithLabelValues(profile, strategy, outcome).Inc()
}

func (c *prometheusCollector) RecordEvaluation(profile, strategy string, duration time.Duration) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	c.evaluationDuration.WithLabelValues(profile, strategy).Observe(duration.Seconds())
}

func (c *prometheusCollector) RecordStoreError(profile, operation string) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	c.storeErrorsTotal.WithLabelValues(profile, operation).Inc()
}

func (c *prometheusCollector) RecordEscalation(profile string) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	c.escalationsTotal.WithLabelValues(profile).Inc()
}

func (c *prometheusCollector) RecordNotification(outcome string) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	c.notificationsTotal.WithLabelValues(outcome).Inc()
}

// RecordBreakerState 记录熔断器状态
func (c *prometheusCollector) RecordBreakerState(name string, state int) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	c.breakerState.WithLabelValues(name).Set(float64(state))
}

func (c *prometheusCollector) RecordBreakerStateChange(name, fromState, toState string) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	c.breakerStateChanges.WithLabelValues(name, fromState, toState).Inc()
}

// RecordResponse 记录 HTTP 响应
func (c *prometheusCollector) RecordResponse(serverName, method, path string, statusCode int, duration time.Duration) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	c.httpRequestsTotal.WithLabelValues(serverName, method, path, formatStatusCode(statusCode)).Inc()
	c.httpRequestDuration.WithLabelValues(serverName, method, path).Observe(duration.Seconds())
}

func (c *prometheusCollector) RecordLocalRejection(serverName string) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	c.localRejectionsTotal.WithLabelValues(serverName).Inc()
}

// GetRegistry 获取 Prometheus 注册器
func (c *prometheusCollector) GetRegistry() *prometheus.Registry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.registry
}

// Name 获取收集器名称
func (c *prometheusCollector) Name() string {
	return c.name
}

// Close 关闭收集器并清理资源
func (c *prometheusCollector) Close() error {
	return nil
}

// formatStatusCode 格式化状态码，常见状态码直接返回常量字符串
func formatStatusCode(code int) string {
	switch code {
	case 200:
		return "200"
	case 204:
		return "204"
	case 400:
		return "400"
	case 404:
		return "404"
	case 429:
		return "429"
	case 500:
		return "500"
	case 503:
		return "503"
	default:
		return strconv.Itoa(code)
	}
}
