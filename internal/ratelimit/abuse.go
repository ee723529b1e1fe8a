package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/shengyanli1982/ratewarden/internal/constants"
	"github.com/shengyanli1982/ratewarden/internal/metrics"
	"github.com/shengyanli1982/ratewarden/internal/store"
)

// ViolationKeyPrefix 违规计数键前缀
const ViolationKeyPrefix = "suspicious:"

// ViolationKey 返回计数键对应的违规计数键
func ViolationKey(key string) string {
	return ViolationKeyPrefix + key
}

// EscalationEvent 代表一次潜在攻击信号
type EscalationEvent struct {
	ID            string    `json:"id"`
	Profile       string    `json:"profile"`
	Key           string    `json:"key"`
	ClientAddress string    `json:"clientAddress"`
	Endpoint      string    `json:"endpoint"`
	Signature     string    `json:"signature"`
	Violations    int64     `json:"violations"`
	Time          time.Time `json:"time"`
}

// EscalationHandler 接收潜在攻击信号，例如转发给安全响应流程
type EscalationHandler func(ctx context.Context, event *EscalationEvent)

// AbuseOption 违规追踪器选项
type AbuseOption func(*AbuseTracker)

// WithThreshold 设置升级阈值，违规次数超过该值时发出信号
func WithThreshold(threshold int64) AbuseOption {
	return func(t *AbuseTracker) {
		if threshold > 0 {
			t.threshold = threshold
		}
	}
}

// WithWindow 设置违规计数保留时间
func WithWindow(window time.Duration) AbuseOption {
	return func(t *AbuseTracker) {
		if window > 0 {
			t.window = window
		}
	}
}

// WithAbuseTimeout 设置单次存储操作超时
func WithAbuseTimeout(timeout time.Duration) AbuseOption {
	return func(t *AbuseTracker) {
		if timeout > 0 {
			t.timeout = timeout
		}
	}
}

func WithAbuseLogger(logger *logr.Logger) AbuseOption {
	return func(t *AbuseTracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

func WithAbuseMetrics(collector metrics.MetricsCollector) AbuseOption {
	return func(t *AbuseTracker) {
		if collector != nil {
			t.metrics = collector
		}
	}
}

// WithEscalationHandler 设置潜在攻击信号的回调
func WithEscalationHandler(handler EscalationHandler) AbuseOption {
	return func(t *AbuseTracker) {
		t.onEscalate = handler
	}
}

func WithAbuseClock(now func() time.Time) AbuseOption {
	return func(t *AbuseTracker) {
		if now != nil {
			t.now = now
		}
	}
}

// AbuseTracker 代表违规追踪器
// 在请求被拒绝之后作为旁路观察者运行，自身的任何失败都不影响限流结论。
type AbuseTracker struct {
	store      store.Store
	threshold  int64
	window     time.Duration
	timeout    time.Duration
	logger     *logr.Logger
	metrics    metrics.MetricsCollector
	onEscalate EscalationHandler
	now        func() time.Time
}

// NewAbuseTracker 创建违规追踪器
func NewAbuseTracker(s store.Store, opts ...AbuseOption) (*AbuseTracker, error) {
	if s == nil {
		return nil, ErrNilStore
	}

	discard := logr.Discard()
	t := &AbuseTracker{
		store:     s,
		threshold: constants.DefaultAbuseThreshold,
		window:    time.Duration(constants.DefaultAbuseWindow) * time.Millisecond,
		timeout:   time.Duration(constants.DefaultStoreTimeout) * time.Millisecond,
		logger:    &discard,
		metrics:   metrics.NewNoopCollector(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Threshold 返回升级阈值
func (t *AbuseTracker) Threshold() int64 {
	return t.threshold
}

// Record 记录一次违规，违规次数超过阈值时发出潜在攻击信号
func (t *AbuseTracker) Record(ctx context.Context, profile, key string, req *Request) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error(fmt.Errorf("panic: %v", r), "Abuse tracker recovered from panic", "profile", profile, "key", key)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	count, err := t.store.Increment(ctx, ViolationKey(key), t.window)
	if err != nil {
		t.metrics.RecordStoreError(profile, constants.ErrorTypeStoreIncrement)
		t.logger.Error(err, "Failed to record rate limit violation", "profile", profile, "key", key)
		return
	}

	if count <= t.threshold {
		return
	}

	event := &EscalationEvent{
		ID:            uuid.NewString(),
		Profile:       profile,
		Key:           key,
		ClientAddress: req.ClientAddress,
		Endpoint:      req.Path,
		Signature:     req.Signature,
		Violations:    count,
		Time:          t.now(),
	}

	t.metrics.RecordEscalation(profile)
	t.logger.Error(ErrPotentialAttack, "Potential attack detected",
		"eventId", event.ID,
		"profile", profile,
		"clientAddress", event.ClientAddress,
		"violations", event.Violations,
		"endpoint", event.Endpoint,
		"signature", event.Signature)

	if t.onEscalate != nil {
		t.onEscalate(ctx, event)
	}
}

// Violations 返回计数键当前的违规次数，键不存在时为 0
func (t *AbuseTracker) Violations(ctx context.Context, key string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	value, found, err := t.store.Get(ctx, ViolationKey(key))
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, nil
	}
	return strconv.ParseInt(string(value), 10, 64)
}
