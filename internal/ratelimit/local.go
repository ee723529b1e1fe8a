package ratelimit

import (
	"net/http"
	"sync"

	"golang.org/x/time/rate"
)

// LocalLimiter 进程内按客户端IP限流，基于 token bucket 算法
// 状态不共享，仅用于保护本进程的管理接口。
type LocalLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

// NewLocalLimiter 创建进程内限流器
func NewLocalLimiter(perSecond float64, burst int) *LocalLimiter {
	return &LocalLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(perSecond),
		burst:    burst,
	}
}

// Allow 检查指定key是否允许通过
func (l *LocalLimiter) Allow(key string) bool {
	return l.getLimiter(key).Allow()
}

// AllowRequest 检查请求IP是否允许通过
func (l *LocalLimiter) AllowRequest(req *http.Request) bool {
	ip := ClientIP(req)
	if ip == "" {
		return true // 无法获取IP时默认通过
	}
	return l.Allow(ip)
}

// Reset 重置指定key的限流状态
func (l *LocalLimiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.limiters, key)
}

// Len 返回当前跟踪的key数量
func (l *LocalLimiter) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.limiters)
}

// getLimiter 获取或创建指定key的限流器
func (l *LocalLimiter) getLimiter(key string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[key]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// 双重检查
	if limiter, exists := l.limiters[key]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(l.limit, l.burst)
	l.limiters[key] = limiter

	return limiter
}
