package ratelimit

import (
	"time"

	"github.com/go-logr/logr"
	"github.com/shengyanli1982/ratewarden/internal/metrics"
)

// Option 限流器选项
type Option func(*options)

type options struct {
	now            func() time.Time
	logger         *logr.Logger
	metrics        metrics.MetricsCollector
	keyFunc        KeyFunc
	skip           SkipFunc
	onLimitReached LimitHandler
	message        string
	includeHeaders bool
	storeTimeout   time.Duration
	tracker        *AbuseTracker
}

// WithClock 设置时钟，用于测试
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func WithLogger(logger *logr.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func WithMetrics(collector metrics.MetricsCollector) Option {
	return func(o *options) {
		if collector != nil {
			o.metrics = collector
		}
	}
}

// WithKeyFunc 替换默认的计数键生成方式
func WithKeyFunc(fn KeyFunc) Option {
	return func(o *options) {
		if fn != nil {
			o.keyFunc = fn
		}
	}
}

// WithSkip 设置免限流判断
func WithSkip(fn SkipFunc) Option {
	return func(o *options) {
		o.skip = fn
	}
}

// WithOnLimitReached 设置请求被拒绝后的回调
func WithOnLimitReached(fn LimitHandler) Option {
	return func(o *options) {
		o.onLimitReached = fn
	}
}

// WithMessage 设置拒绝响应中的提示信息
func WithMessage(message string) Option {
	return func(o *options) {
		o.message = message
	}
}

// WithHeaders 设置拒绝时是否附加限流响应头
func WithHeaders(enabled bool) Option {
	return func(o *options) {
		o.includeHeaders = enabled
	}
}

// WithStoreTimeout 设置单次判定的存储超时，超时即放行
func WithStoreTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout > 0 {
			o.storeTimeout = timeout
		}
	}
}

// WithAbuseTracker 设置违规追踪器，为 nil 时不追踪
func WithAbuseTracker(tracker *AbuseTracker) Option {
	return func(o *options) {
		o.tracker = tracker
	}
}
