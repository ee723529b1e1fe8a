package client

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/shengyanli1982/ratewarden/internal/config"
)

// maxRetryDelay 退避间隔上限
const maxRetryDelay = 30 * time.Second

// RetryHandler 重试处理器，间隔按指数退避增长
type RetryHandler struct {
	attempts int
	initial  time.Duration
}

// NewRetryHandler 创建重试处理器，cfg 为空时只尝试一次
func NewRetryHandler(cfg *config.RetryConfig) *RetryHandler {
	r := &RetryHandler{attempts: 1}
	if cfg != nil {
		if cfg.Attempts > 0 {
			r.attempts = cfg.Attempts
		}
		r.initial = time.Duration(cfg.Initial) * time.Millisecond
	}
	return r
}

// Attempts 返回最大尝试次数
func (r *RetryHandler) Attempts() int {
	return r.attempts
}

// Do 执行请求，网络错误与可重试状态码会触发重试
// 成功时返回的响应体由调用方关闭。
func (r *RetryHandler) Do(ctx context.Context, fn func() (*http.Response, error)) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt < r.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(r.delay(attempt - 1)):
			}
		}

		resp, err := fn()
		if err != nil {
			lastErr = err
			continue
		}
		if !shouldRetry(resp.StatusCode) {
			return resp, nil
		}

		_ = resp.Body.Close()
		lastErr = &StatusError{StatusCode: resp.StatusCode}
	}

	if lastErr == nil {
		lastErr = errors.New("max retries exceeded")
	}
	return nil, lastErr
}

// delay 计算第 attempt 次重试前的等待时间
func (r *RetryHandler) delay(attempt int) time.Duration {
	d := r.initial
	for i := 0; i < attempt && d < maxRetryDelay; i++ {
		d *= 2
	}
	if d > maxRetryDelay {
		d = maxRetryDelay
	}
	return d
}

// shouldRetry 判断状态码是否值得重试
func shouldRetry(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
