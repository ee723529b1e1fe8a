package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shengyanli1982/ratewarden/internal/constants"
)

// MetricsCollector 代表指标收集器接口，定义统一的指标收集行为
type MetricsCollector interface {
	// 限流决策指标收集方法

	// RecordDecision 记录一次限流决策
	// profile: 限流配置名称
	// strategy: 限流算法
	// outcome: 决策结果（allowed, limited, skipped, fail_open）
	RecordDecision(profile, strategy, outcome string)

	// RecordEvaluation 记录一次决策耗时
	// profile: 限流配置名称
	// strategy: 限流算法
	// duration: 从生成键到得出结论的耗时
	RecordEvaluation(profile, strategy string, duration time.Duration)

	// RecordStoreError 记录存储操作失败
	// profile: 限流配置名称
	// operation: 存储操作（update, increment, get）
	RecordStoreError(profile, operation string)

	// RecordEscalation 记录潜在攻击升级
	// profile: 限流配置名称
	RecordEscalation(profile string)

	// RecordNotification 记录升级事件的外部通知结果
	// outcome: 通知结果（delivered, failed, dropped）
	RecordNotification(outcome string)

	// 熔断器指标收集方法

	// RecordBreakerState 记录熔断器状态（0=关闭, 1=半开, 2=开启）
	RecordBreakerState(name string, state int)

	// RecordBreakerStateChange 记录熔断器状态变化
	RecordBreakerStateChange(name, fromState, toState string)

	// HTTP 服务器指标收集方法

	// RecordResponse 记录 HTTP 响应
	// serverName: 服务名称
	// method: HTTP 方法
	// path: 路由路径
	// statusCode: HTTP 状态码
	// duration: 请求处理时间
	RecordResponse(serverName, method, path string, statusCode int, duration time.Duration)

	// RecordLocalRejection 记录进程内限流拒绝
	RecordLocalRejection(serverName string)

	// 工具方法

	// GetRegistry 获取 Prometheus 注册器，用于与 orbit 框架集成
	GetRegistry() *prometheus.Registry

	// Name 获取收集器名称
	Name() string

	// Close 关闭收集器并清理资源
	Close() error
}

// MetricsCollectorFactory 代表指标收集器工厂接口
type MetricsCollectorFactory interface {
	// Create 根据配置创建指标收集器
	// config: 指标收集器配置
	Create(config *Config) (MetricsCollector, error)

	// CreateWithRegistry 根据配置创建写入指定注册器的指标收集器
	CreateWithRegistry(config *Config, registry *prometheus.Registry) (MetricsCollector, error)
}

// Config 代表指标收集器配置
type Config struct {
	// Type 指标收集器类型（prometheus, noop）
	Type string `yaml:"type" json:"type"`

	// Enabled 是否启用指标收集
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Namespace 指标命名空间前缀
	Namespace string `yaml:"namespace" json:"namespace"`

	// Subsystem 指标子系统名称
	Subsystem string `yaml:"subsystem" json:"subsystem"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Type:      NoopType,
		Enabled:   true,
		Namespace: constants.MetricsNamespace,
		Subsystem: "",
	}
}
