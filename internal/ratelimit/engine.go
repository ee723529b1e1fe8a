package ratelimit

import (
	"time"
)

// engine 代表限流算法，所有实现都是存储状态与当前时间上的纯函数
type engine interface {
	// storageKey 返回算法状态在存储中的键
	storageKey(key string, now int64) string

	// evaluate 基于当前状态计算结论与新状态，write 为 false 时不写回
	evaluate(current []byte, found bool, now int64) (next []byte, ttl time.Duration, write bool, verdict Verdict, err error)
}

func newEngine(strategy Strategy, windowMs int64, maxRequests int) (engine, error) {
	switch strategy {
	case FixedWindow:
		return &fixedWindow{windowMs: windowMs, maxRequests: maxRequests}, nil
	case SlidingWindow:
		return &slidingWindow{windowMs: windowMs, maxRequests: maxRequests}, nil
	case TokenBucket:
		return &tokenBucket{windowMs: windowMs, maxRequests: maxRequests}, nil
	default:
		return nil, ErrUnknownStrategy
	}
}

// ceilSeconds 将毫秒向上取整为秒
func ceilSeconds(ms int64) int64 {
	if ms <= 0 {
		return 0
	}
	return (ms + 999) / 1000
}

// secondsTTL 将毫秒时长向上取整为整秒 TTL，最少 1 秒
func secondsTTL(ms int64) time.Duration {
	s := ceilSeconds(ms)
	if s < 1 {
		s = 1
	}
	return time.Duration(s) * time.Second
}
