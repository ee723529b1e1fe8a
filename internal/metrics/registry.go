package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 注册器相关错误定义
var (
	ErrCollectorAlreadyRegistered = errors.New("collector already registered")
	ErrEmptyCollectorName         = errors.New("collector name cannot be empty")
)

// MetricsRegistry 代表指标注册管理器，多个收集器共享同一个 Prometheus 注册器
type MetricsRegistry struct {
	mu         sync.RWMutex
	registry   *prometheus.Registry
	collectors map[string]MetricsCollector
}

// 全局单例实例
var (
	globalRegistry *MetricsRegistry
	registryOnce   sync.Once
)

// GetGlobalRegistry 获取全局单例注册器实例
// 全局注册器额外包含 Go 运行时与进程指标
func GetGlobalRegistry() *MetricsRegistry {
	registryOnce.Do(func() {
		globalRegistry = NewMetricsRegistry()
		globalRegistry.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	})
	return globalRegistry
}

// NewMetricsRegistry 创建新的指标注册器实例（用于测试或特殊场景）
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		registry:   prometheus.NewRegistry(),
		collectors: make(map[string]MetricsCollector),
	}
}

// GetCollector 获取指定名称的指标收集器
func (r *MetricsRegistry) GetCollector(name string) (MetricsCollector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	collector, exists := r.collectors[name]
	return collector, exists
}

// GetRegistry 获取 Prometheus 注册器
func (r *MetricsRegistry) GetRegistry() *prometheus.Registry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.registry
}

// ListCollectors 获取所有已注册收集器的名称列表（已排序）
func (r *MetricsRegistry) ListCollectors() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.collectors))
	for name := range r.collectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CollectorCount 获取已注册收集器的数量
func (r *MetricsRegistry) CollectorCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.collectors)
}

// CreateSharedCollector 通过工厂创建一个使用共享注册器的收集器并按名称登记
// noop 类型或禁用时不向注册器写入任何指标
func (r *MetricsRegistry) CreateSharedCollector(name string, config *Config) (MetricsCollector, error) {
	if name == "" {
		return nil, ErrEmptyCollectorName
	}
	if config == nil {
		return nil, ErrNilConfig
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.collectors[name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrCollectorAlreadyRegistered, name)
	}

	collector, err := NewFactory().CreateWithRegistry(config, r.registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create collector %s: %w", name, err)
	}

	r.collectors[name] = collector

	return collector, nil
}

// Handler 返回暴露共享注册器内容的 HTTP 处理器
func (r *MetricsRegistry) Handler() http.Handler {
	return promhttp.HandlerFor(r.GetRegistry(), promhttp.HandlerOpts{EnableOpenMetrics: true})
}
