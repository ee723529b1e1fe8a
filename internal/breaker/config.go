package breaker

import (
	"time"

	"github.com/shengyanli1982/ratewarden/internal/config"
	"github.com/shengyanli1982/ratewarden/internal/constants"
	"github.com/sony/gobreaker"
)

// StateChangeFunc 熔断器状态变化回调
type StateChangeFunc func(name string, from gobreaker.State, to gobreaker.State)

// tripOnRatio 返回按失败率判定的熔断条件
func tripOnRatio(threshold float64) func(counts gobreaker.Counts) bool {
	return func(counts gobreaker.Counts) bool {
		if counts.Requests < constants.DefaultBreakerMinRequests {
			return false
		}
		failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
		return failureRatio >= threshold
	}
}

// DefaultSettings 返回默认的熔断器设置
func DefaultSettings() gobreaker.Settings {
	return gobreaker.Settings{
		Name:        constants.DefaultBreakerName,
		MaxRequests: constants.DefaultBreakerMaxRequests,
		Interval:    time.Duration(constants.DefaultBreakerInterval) * time.Millisecond,
		Timeout:     time.Duration(constants.DefaultBreakerCooldown) * time.Millisecond,
		ReadyToTrip: tripOnRatio(constants.DefaultBreakerThreshold),
	}
}

// CreateFromConfig 从配置创建熔断器设置的便捷函数
// onChange 可为空
func CreateFromConfig(name string, config *config.BreakerConfig, onChange StateChangeFunc) gobreaker.Settings {
	settings := DefaultSettings()
	settings.Name = name
	if onChange != nil {
		settings.OnStateChange = onChange
	}

	if config == nil {
		return settings
	}

	// 设置半开状态下允许通过的最大请求数
	if config.MaxRequests > 0 {
		settings.MaxRequests = config.MaxRequests
	}

	// 设置闭合状态下统计周期重置间隔
	if config.Interval > 0 {
		settings.Interval = time.Duration(config.Interval) * time.Millisecond
	}

	// 设置开放状态持续时间
	if config.Cooldown > 0 {
		settings.Timeout = time.Duration(config.Cooldown) * time.Millisecond
	}

	// 设置熔断触发条件
	if config.Threshold > 0 {
		settings.ReadyToTrip = tripOnRatio(config.Threshold)
	}

	return settings
}
