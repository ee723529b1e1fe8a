package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// noopCollector 空操作指标收集器，用于禁用指标收集时的占位实现
type noopCollector struct {
	name string
}

// NewNoopCollector 创建新的空操作指标收集器实例
func NewNoopCollector() MetricsCollector {
	return &noopCollector{
		name: NoopType,
	}
}

func (c *noopCollector) RecordDecision(profile, strategy, outcome string) {}

func (c *noopCollector) RecordEvaluation(profile, strategy string, duration time.Duration) {}

func (c *noopCollector) RecordStoreError(profile, operation string) {}

func (c *noopCollector) RecordEscalation(profile string) {}

func (c *noopCollector) RecordNotification(outcome string) {}

func (c *noopCollector) RecordBreakerState(name string, state int) {}

func (c *noopCollector) RecordBreakerStateChange(name, fromState, toState string) {}

func (c *noopCollector) RecordResponse(serverName, method, path string, statusCode int, duration time.Duration) {
}

func (c *noopCollector) RecordLocalRejection(serverName string) {}

func (c *noopCollector) GetRegistry() *prometheus.Registry {
	// 返回空的注册器
	return prometheus.NewRegistry()
}

func (c *noopCollector) Name() string {
	return c.name
}

func (c *noopCollector) Close() error {
	return nil
}
