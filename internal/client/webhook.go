// Package client 将潜在攻击信号推送到外部 webhook
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/shengyanli1982/ratewarden/internal/auth"
	"github.com/shengyanli1982/ratewarden/internal/config"
	"github.com/shengyanli1982/ratewarden/internal/constants"
	"github.com/shengyanli1982/ratewarden/internal/headers"
	"github.com/shengyanli1982/ratewarden/internal/metrics"
	"github.com/shengyanli1982/ratewarden/internal/ratelimit"
)

// 通知器相关错误定义
var (
	ErrNilConfig      = errors.New("webhook config cannot be nil")
	ErrNotifierClosed = errors.New(constants.ErrMsgNotifierClosed)
)

// StatusError 代表通知端点返回了非成功状态码
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d", constants.ErrMsgWebhookStatus, e.StatusCode)
}

// Webhook 代表升级事件通知器
// Notify 只负责入队，由后台协程串行投递，投递失败不会影响限流判定。
type Webhook struct {
	url       string
	client    *http.Client
	transport *http.Transport
	retry     *RetryHandler
	auth      auth.Authenticator
	headers   []config.HeaderOpConfig
	logger    *logr.Logger
	metrics   metrics.MetricsCollector

	mu     sync.RWMutex
	closed bool
	queue  chan *ratelimit.EscalationEvent
	wg     sync.WaitGroup
}

// NewWebhook 创建通知器并启动投递协程
func NewWebhook(cfg *config.WebhookConfig, logger *logr.Logger, collector metrics.MetricsCollector) (*Webhook, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	if logger == nil {
		discard := logr.Discard()
		logger = &discard
	}
	if collector == nil {
		collector = metrics.NewNoopCollector()
	}

	authenticator, err := auth.New(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("webhook auth: %w", err)
	}

	transport, err := newTransport(cfg)
	if err != nil {
		return nil, fmt.Errorf("webhook proxy: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = constants.DefaultWebhookTimeout
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = constants.DefaultWebhookQueueSize
	}

	w := &Webhook{
		url: cfg.URL,
		client: &http.Client{
			Transport: transport,
			Timeout:   time.Duration(timeout) * time.Millisecond,
		},
		transport: transport,
		retry:     NewRetryHandler(cfg.Retry),
		auth:      authenticator,
		headers:   cfg.Headers,
		logger:    logger,
		metrics:   collector,
		queue:     make(chan *ratelimit.EscalationEvent, queueSize),
	}

	w.wg.Add(1)
	go w.run()

	return w, nil
}

// Notify 将事件放入投递队列，队列已满或通知器已关闭时丢弃
// 签名与 ratelimit.EscalationHandler 一致，可直接注册到违规追踪器。
func (w *Webhook) Notify(_ context.Context, event *ratelimit.EscalationEvent) {
	if event == nil {
		return
	}

	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		w.drop(event, ErrNotifierClosed)
		return
	}

	select {
	case w.queue <- event:
	default:
		w.drop(event, errors.New("notification queue is full"))
	}
}

func (w *Webhook) drop(event *ratelimit.EscalationEvent, reason error) {
	w.metrics.RecordNotification(constants.NotificationDropped)
	w.logger.Error(reason, "Escalation notification dropped", "eventId", event.ID, "profile", event.Profile)
}

// run 串行投递队列中的事件直到队列关闭
func (w *Webhook) run() {
	defer w.wg.Done()

	for event := range w.queue {
		if err := w.Send(context.Background(), event); err != nil {
			w.metrics.RecordNotification(constants.NotificationFailed)
			w.logger.Error(err, "Failed to deliver escalation notification",
				"eventId", event.ID, "profile", event.Profile, "attempts", w.retry.Attempts())
			continue
		}
		w.metrics.RecordNotification(constants.NotificationDelivered)
		w.logger.V(1).Info("Escalation notification delivered", "eventId", event.ID, "profile", event.Profile)
	}
}

// Send 同步投递单个事件，按重试配置处理临时失败
func (w *Webhook) Send(ctx context.Context, event *ratelimit.EscalationEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	resp, err := w.retry.Do(ctx, func() (*http.Response, error) {
		req, err := w.newRequest(ctx, event.ID, body)
		if err != nil {
			return nil, err
		}
		return w.client.Do(req)
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &StatusError{StatusCode: resp.StatusCode}
	}
	return nil
}

// newRequest 构建一次投递请求，每次重试都重新构建
func (w *Webhook) newRequest(ctx context.Context, eventID string, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set(constants.HeaderContentType, constants.ContentTypeJSON)
	req.Header.Set(constants.HeaderUserAgent, constants.UserAgent)
	req.Header.Set(constants.HeaderEventID, eventID)

	if err := headers.Apply(req.Header, w.headers); err != nil {
		return nil, err
	}
	if err := w.auth.Apply(req); err != nil {
		return nil, err
	}
	return req, nil
}

// Close 停止接收新事件，等待队列中的事件投递完毕
func (w *Webhook) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.queue)
	w.mu.Unlock()

	w.wg.Wait()
	w.transport.CloseIdleConnections()
	return nil
}
