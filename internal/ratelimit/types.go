// Package ratelimit 实现基于共享计数存储的请求限流与违规升级
//
// 三种限流算法（固定窗口、滑动窗口日志、令牌桶）均是存储状态与当前时间上的纯函数，
// 通过 store.Store 的 Update 以比较并交换的方式原子执行。存储故障时一律放行。
package ratelimit

import (
	"errors"
	"net/http"

	"github.com/shengyanli1982/ratewarden/internal/constants"
)

// 限流相关错误定义
var (
	ErrInvalidMaxRequests = errors.New("maxRequests must be greater than zero")
	ErrInvalidWindow      = errors.New("window must be greater than zero")
	ErrUnknownStrategy    = errors.New("unknown rate limit strategy")
	ErrNilStore           = errors.New("counter store cannot be nil")
	ErrEmptyName          = errors.New("limiter name cannot be empty")
	ErrUnknownProfile     = errors.New(constants.ErrMsgUnknownProfile)
	ErrPotentialAttack    = errors.New("potential attack detected")
)

// Strategy 限流算法
type Strategy int

const (
	FixedWindow Strategy = iota + 1
	SlidingWindow
	TokenBucket
)

func (s Strategy) String() string {
	switch s {
	case FixedWindow:
		return constants.StrategyFixedWindow
	case SlidingWindow:
		return constants.StrategySlidingWindow
	case TokenBucket:
		return constants.StrategyTokenBucket
	default:
		return "unknown"
	}
}

// ParseStrategy 按名称解析限流算法
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case constants.StrategyFixedWindow:
		return FixedWindow, nil
	case constants.StrategySlidingWindow:
		return SlidingWindow, nil
	case constants.StrategyTokenBucket:
		return TokenBucket, nil
	default:
		return 0, ErrUnknownStrategy
	}
}

// Request 代表一次待判定的入站请求
type Request struct {
	Path          string `json:"path"`
	Method        string `json:"method,omitempty"`
	ClientAddress string `json:"clientAddress"`
	Signature     string `json:"signature,omitempty"`
}

// RequestFromHTTP 从 HTTP 请求提取判定所需信息
func RequestFromHTTP(r *http.Request) *Request {
	return &Request{
		Path:          r.URL.Path,
		Method:        r.Method,
		ClientAddress: ClientIP(r),
		Signature:     r.Header.Get(constants.HeaderUserAgent),
	}
}

// Verdict 代表限流算法对单次请求的结论
type Verdict struct {
	Allowed    bool
	Remaining  int
	ResetTime  int64 // 毫秒时间戳
	RetryAfter int64 // 秒，仅拒绝时有效
}

// KeyFunc 从请求生成计数键
type KeyFunc func(req *Request) string

// SkipFunc 判断请求是否免于限流
type SkipFunc func(req *Request) bool

// LimitHandler 在请求被拒绝后调用
type LimitHandler func(req *Request, key string)
