package server

import (
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/shengyanli1982/ratewarden/internal/client"
	"github.com/shengyanli1982/ratewarden/internal/config"
	"github.com/shengyanli1982/ratewarden/internal/constants"
	"github.com/shengyanli1982/ratewarden/internal/metrics"
	"github.com/shengyanli1982/ratewarden/internal/ratelimit"
	"github.com/shengyanli1982/ratewarden/internal/store"
	"github.com/sony/gobreaker"
)

// Runtime 代表由配置构建出的限流运行时，被所有决策服务共享
type Runtime struct {
	Store    store.Store
	Metrics  metrics.MetricsCollector
	Tracker  *ratelimit.AbuseTracker
	Notifier *client.Webhook // 未配置 webhook 时为空
	Limits   *ratelimit.Manager
}

// sharedCollector 使用全局 MetricsRegistry 获取或创建唯一的共享收集器
func sharedCollector(logger *logr.Logger) (metrics.MetricsCollector, error) {
	globalRegistry := metrics.GetGlobalRegistry()

	if existing, ok := globalRegistry.GetCollector(constants.MetricsCollectorGlobal); ok {
		logger.V(1).Info("Reusing global metrics collector")
		return existing, nil
	}

	cfg := &metrics.Config{
		Type:      constants.MetricsTypePrometheus,
		Enabled:   true,
		Namespace: constants.MetricsNamespace,
	}
	collector, err := globalRegistry.CreateSharedCollector(constants.MetricsCollectorGlobal, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create global metrics collector: %w", err)
	}
	return collector, nil
}

// NewRuntime 根据配置创建计数存储、违规追踪器和全部限流器
func NewRuntime(cfg *config.Config, logger *logr.Logger, collector metrics.MetricsCollector) (*Runtime, error) {
	onBreakerChange := func(name string, from, to gobreaker.State) {
		logger.Info("Store circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		collector.RecordBreakerStateChange(name, from.String(), to.String())
		collector.RecordBreakerState(name, int(to))
	}

	s, err := store.CreateFromConfig(&cfg.Store, onBreakerChange)
	if err != nil {
		return nil, fmt.Errorf("failed to create counter store: %w", err)
	}

	storeTimeout := time.Duration(cfg.Store.Timeout) * time.Millisecond

	rt := &Runtime{Store: s, Metrics: collector}

	if !cfg.Abuse.Disabled {
		opts := []ratelimit.AbuseOption{
			ratelimit.WithThreshold(int64(cfg.Abuse.Threshold)),
			ratelimit.WithWindow(time.Duration(cfg.Abuse.Window) * time.Millisecond),
			ratelimit.WithAbuseTimeout(storeTimeout),
			ratelimit.WithAbuseLogger(logger),
			ratelimit.WithAbuseMetrics(collector),
		}
		if cfg.Abuse.Webhook != nil {
			rt.Notifier, err = client.NewWebhook(cfg.Abuse.Webhook, logger, collector)
			if err != nil {
				_ = rt.Close()
				return nil, fmt.Errorf("failed to create escalation webhook: %w", err)
			}
			opts = append(opts, ratelimit.WithEscalationHandler(rt.Notifier.Notify))
		}

		rt.Tracker, err = ratelimit.NewAbuseTracker(s, opts...)
		if err != nil {
			_ = rt.Close()
			return nil, err
		}
	}

	limiters := make([]*ratelimit.Limiter, 0, len(cfg.Profiles))
	for i := range cfg.Profiles {
		l, err := newProfileLimiter(&cfg.Profiles[i], s, storeTimeout, rt.Tracker, logger, collector)
		if err != nil {
			_ = rt.Close()
			return nil, err
		}
		limiters = append(limiters, l)
	}

	routes := make([]ratelimit.Route, 0, len(cfg.Routes))
	for _, r := range cfg.Routes {
		routes = append(routes, ratelimit.Route{Prefix: r.Prefix, Profile: r.Profile})
	}

	rt.Limits, err = ratelimit.NewManager(cfg.DefaultProfile, routes, limiters...)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}

	return rt, nil
}

// newProfileLimiter 将一个限流配置转换为限流器
func newProfileLimiter(p *config.ProfileConfig, s store.Store, timeout time.Duration, tracker *ratelimit.AbuseTracker, logger *logr.Logger, collector metrics.MetricsCollector) (*ratelimit.Limiter, error) {
	strategy, err := ratelimit.ParseStrategy(p.Strategy)
	if err != nil {
		return nil, fmt.Errorf("profile '%s': %w", p.Name, err)
	}

	includeHeaders := true
	if p.IncludeHeaders != nil {
		includeHeaders = *p.IncludeHeaders
	}

	opts := []ratelimit.Option{
		ratelimit.WithLogger(logger),
		ratelimit.WithMetrics(collector),
		ratelimit.WithMessage(p.Message),
		ratelimit.WithHeaders(includeHeaders),
		ratelimit.WithStoreTimeout(timeout),
		ratelimit.WithAbuseTracker(tracker),
	}

	if p.Skip != nil {
		skip, err := ratelimit.NewSkipRule(p.Skip.Addresses, p.Skip.Paths)
		if err != nil {
			return nil, fmt.Errorf("profile '%s': %w", p.Name, err)
		}
		opts = append(opts, ratelimit.WithSkip(skip))
	}

	return ratelimit.NewLimiter(p.Name, strategy, time.Duration(p.WindowMs)*time.Millisecond, p.MaxRequests, s, opts...)
}

// Close 先投递完剩余的升级通知，再释放计数存储
func (r *Runtime) Close() error {
	if r.Notifier != nil {
		_ = r.Notifier.Close()
	}
	return r.Store.Close()
}
