package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/shengyanli1982/ratewarden/internal/constants"
	"github.com/shengyanli1982/ratewarden/internal/metrics"
	"github.com/shengyanli1982/ratewarden/internal/store"
)

// ProfileInfo 代表限流器的只读描述
type ProfileInfo struct {
	Name           string `json:"name"`
	Strategy       string `json:"strategy"`
	WindowMs       int64  `json:"windowMs"`
	MaxRequests    int    `json:"maxRequests"`
	Message        string `json:"message,omitempty"`
	IncludeHeaders bool   `json:"includeHeaders"`
}

// Limiter 代表单个端点类别的限流器
// 创建后配置不可变，自身不持有计数状态，所有状态都在计数存储中。
type Limiter struct {
	name        string
	strategy    Strategy
	windowMs    int64
	maxRequests int
	engine      engine
	store       store.Store
	opts        options
}

// NewLimiter 创建限流器，非法配置在此处直接返回错误
func NewLimiter(name string, strategy Strategy, window time.Duration, maxRequests int, s store.Store, opts ...Option) (*Limiter, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if maxRequests <= 0 {
		return nil, ErrInvalidMaxRequests
	}
	windowMs := window.Milliseconds()
	if windowMs <= 0 {
		return nil, ErrInvalidWindow
	}
	if s == nil {
		return nil, ErrNilStore
	}
	eng, err := newEngine(strategy, windowMs, maxRequests)
	if err != nil {
		return nil, fmt.Errorf("limiter '%s': %w", name, err)
	}

	discard := logr.Discard()
	o := options{
		now:            time.Now,
		logger:         &discard,
		metrics:        metrics.NewNoopCollector(),
		keyFunc:        DefaultKey,
		includeHeaders: true,
		storeTimeout:   time.Duration(constants.DefaultStoreTimeout) * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &Limiter{
		name:        name,
		strategy:    strategy,
		windowMs:    windowMs,
		maxRequests: maxRequests,
		engine:      eng,
		store:       s,
		opts:        o,
	}, nil
}

func (l *Limiter) Name() string { return l.name }

func (l *Limiter) Strategy() Strategy { return l.strategy }

// Info 返回限流器描述
func (l *Limiter) Info() ProfileInfo {
	return ProfileInfo{
		Name:           l.name,
		Strategy:       l.strategy.String(),
		WindowMs:       l.windowMs,
		MaxRequests:    l.maxRequests,
		Message:        l.opts.message,
		IncludeHeaders: l.opts.includeHeaders,
	}
}

// Key 返回请求对应的计数键
func (l *Limiter) Key(req *Request) string {
	return l.opts.keyFunc(req)
}

// Check 判定请求是否允许通过
// 存储出错或超时时放行并记录错误，错误不会返回给调用方。
func (l *Limiter) Check(ctx context.Context, req *Request) Decision {
	if req == nil {
		req = &Request{}
	}
	strategy := l.strategy.String()

	if l.opts.skip != nil && l.opts.skip(req) {
		l.opts.metrics.RecordDecision(l.name, strategy, constants.OutcomeSkipped)
		return Decision{Limited: false, RemainingRequests: l.maxRequests, Profile: l.name, Limit: l.maxRequests, Skipped: true}
	}

	start := time.Now()
	key := l.opts.keyFunc(req)
	now := l.opts.now().UnixMilli()

	var verdict Verdict
	storeCtx, cancel := context.WithTimeout(ctx, l.opts.storeTimeout)
	err := l.store.Update(storeCtx, l.engine.storageKey(key, now), func(current []byte, found bool) ([]byte, time.Duration, bool, error) {
		next, ttl, write, v, err := l.engine.evaluate(current, found, now)
		verdict = v
		return next, ttl, write, err
	})
	cancel()
	l.opts.metrics.RecordEvaluation(l.name, strategy, time.Since(start))

	if err != nil {
		l.opts.metrics.RecordStoreError(l.name, constants.ErrorTypeStoreUpdate)
		l.opts.metrics.RecordDecision(l.name, strategy, constants.OutcomeFailOpen)
		l.opts.logger.Error(err, "Rate limit store failure, request allowed",
			"profile", l.name, "strategy", strategy, "key", key, "path", req.Path)
		return Decision{Limited: false, Profile: l.name, Key: key, Limit: l.maxRequests, FailOpen: true}
	}

	decision := Decision{
		Limited:           !verdict.Allowed,
		RemainingRequests: verdict.Remaining,
		ResetTime:         verdict.ResetTime,
		Profile:           l.name,
		Limit:             l.maxRequests,
		Key:               key,
		IncludeHeaders:    l.opts.includeHeaders,
	}

	if verdict.Allowed {
		l.opts.metrics.RecordDecision(l.name, strategy, constants.OutcomeAllowed)
		return decision
	}

	l.opts.metrics.RecordDecision(l.name, strategy, constants.OutcomeLimited)
	l.opts.logger.V(1).Info("Rate limit exceeded",
		"profile", l.name, "strategy", strategy, "key", key,
		"clientAddress", req.ClientAddress, "path", req.Path, "retryAfter", verdict.RetryAfter)

	decision.RemainingRequests = 0
	decision.Response = newRejection(l.opts.message, verdict)

	if l.opts.tracker != nil {
		l.opts.tracker.Record(ctx, l.name, key, req)
	}
	if l.opts.onLimitReached != nil {
		l.notify(req, key)
	}

	return decision
}

// notify 调用拒绝回调，回调异常不影响判定结果
func (l *Limiter) notify(req *Request, key string) {
	defer func() {
		if r := recover(); r != nil {
			l.opts.logger.Error(fmt.Errorf("panic: %v", r), "onLimitReached handler panicked", "profile", l.name, "key", key)
		}
	}()
	l.opts.onLimitReached(req, key)
}
