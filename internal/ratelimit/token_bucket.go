package ratelimit

import (
	"encoding/json"
	"time"
)

// tokenBucketState 令牌桶状态
type tokenBucketState struct {
	Tokens     float64 `json:"tokens"`
	LastRefill int64   `json:"lastRefill"`
}

// tokenBucket 令牌桶，每个窗口匀速补充 maxRequests 个令牌
//
// 补充只按整数令牌进行。lastRefill 只前移已兑换成令牌的时长，
// 不足一个令牌的时长保留到下次判定，高频轮询不会让补充停滞。
// 桶满时 lastRefill 直接置为 now。
type tokenBucket struct {
	windowMs    int64
	maxRequests int
}

func (b *tokenBucket) storageKey(key string, _ int64) string {
	return key + ":bucket"
}

// refill 按经过时间补充令牌
func (b *tokenBucket) refill(state *tokenBucketState, now int64) {
	elapsed := now - state.LastRefill
	if elapsed <= 0 {
		return
	}

	capacity := float64(b.maxRequests)
	added := elapsed * int64(b.maxRequests) / b.windowMs
	state.Tokens += float64(added)
	if state.Tokens >= capacity {
		state.Tokens = capacity
		state.LastRefill = now
		return
	}
	if added > 0 {
		// 向上取整，宁可少补也不多补
		consumed := (added*b.windowMs + int64(b.maxRequests) - 1) / int64(b.maxRequests)
		state.LastRefill += consumed
	}
}

func (b *tokenBucket) evaluate(current []byte, found bool, now int64) ([]byte, time.Duration, bool, Verdict, error) {
	state := tokenBucketState{Tokens: float64(b.maxRequests), LastRefill: now}
	if found {
		var stored tokenBucketState
		if err := json.Unmarshal(current, &stored); err == nil {
			state = stored
		}
	}

	b.refill(&state, now)
	resetTime := now + b.windowMs

	// 拒绝时不消耗令牌也不写回，未兑换的时长仍保留在存储的 lastRefill 中
	if state.Tokens < 1 {
		return nil, 0, false, Verdict{
			Allowed:    false,
			ResetTime:  resetTime,
			RetryAfter: ceilSeconds(b.windowMs),
		}, nil
	}

	state.Tokens--
	next, err := json.Marshal(&state)
	if err != nil {
		return nil, 0, false, Verdict{}, err
	}

	return next, secondsTTL(2 * b.windowMs), true, Verdict{
		Allowed:   true,
		Remaining: int(state.Tokens),
		ResetTime: resetTime,
	}, nil
}
