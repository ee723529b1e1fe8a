package ratelimit

import (
	"encoding/json"
	"time"
)

// slidingWindowState 滑动窗口日志状态，时间戳按写入顺序排列
type slidingWindowState struct {
	Timestamps []int64 `json:"timestamps"`
}

// slidingWindow 滑动窗口日志
// 每次判定都会丢弃 now-windowMs 之前的时间戳，日志长度不超过 maxRequests。
type slidingWindow struct {
	windowMs    int64
	maxRequests int
}

func (s *slidingWindow) storageKey(key string, _ int64) string {
	return key + ":requests"
}

func (s *slidingWindow) evaluate(current []byte, found bool, now int64) ([]byte, time.Duration, bool, Verdict, error) {
	var state slidingWindowState
	if found {
		if err := json.Unmarshal(current, &state); err != nil {
			state = slidingWindowState{}
		}
	}

	cutoff := now - s.windowMs
	live := make([]int64, 0, s.maxRequests)
	oldest := int64(0)
	for _, ts := range state.Timestamps {
		if ts <= cutoff {
			continue
		}
		if len(live) == 0 || ts < oldest {
			oldest = ts
		}
		live = append(live, ts)
	}

	if len(live) >= s.maxRequests {
		resetTime := oldest + s.windowMs
		return nil, 0, false, Verdict{
			Allowed:    false,
			ResetTime:  resetTime,
			RetryAfter: ceilSeconds(resetTime - now),
		}, nil
	}

	live = append(live, now)
	next, err := json.Marshal(&slidingWindowState{Timestamps: live})
	if err != nil {
		return nil, 0, false, Verdict{}, err
	}

	return next, secondsTTL(s.windowMs), true, Verdict{
		Allowed:   true,
		Remaining: s.maxRequests - len(live),
		ResetTime: now + s.windowMs,
	}, nil
}
