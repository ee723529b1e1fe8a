package ratelimit

import (
	"encoding/json"
	"strconv"
	"time"
)

// fixedWindowState 固定窗口计数状态
type fixedWindowState struct {
	Count       int   `json:"count"`
	WindowStart int64 `json:"windowStart"`
}

// fixedWindow 固定窗口计数
// 窗口按 windowMs 对齐，边界两侧各允许 maxRequests 次请求。
type fixedWindow struct {
	windowMs    int64
	maxRequests int
}

func (f *fixedWindow) windowStart(now int64) int64 {
	return now / f.windowMs * f.windowMs
}

func (f *fixedWindow) storageKey(key string, now int64) string {
	return key + ":" + strconv.FormatInt(f.windowStart(now), 10)
}

func (f *fixedWindow) evaluate(current []byte, found bool, now int64) ([]byte, time.Duration, bool, Verdict, error) {
	start := f.windowStart(now)
	resetTime := start + f.windowMs

	var state fixedWindowState
	if found {
		// 状态损坏时按新窗口处理
		if err := json.Unmarshal(current, &state); err != nil || state.WindowStart != start {
			state = fixedWindowState{}
		}
	}

	if state.Count+1 > f.maxRequests {
		return nil, 0, false, Verdict{
			Allowed:    false,
			ResetTime:  resetTime,
			RetryAfter: ceilSeconds(resetTime - now),
		}, nil
	}

	state.Count++
	state.WindowStart = start
	next, err := json.Marshal(&state)
	if err != nil {
		return nil, 0, false, Verdict{}, err
	}

	return next, secondsTTL(resetTime - now), true, Verdict{
		Allowed:   true,
		Remaining: f.maxRequests - state.Count,
		ResetTime: resetTime,
	}, nil
}
