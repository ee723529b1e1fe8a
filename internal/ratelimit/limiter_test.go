package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/shengyanli1982/ratewarden/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLimiter_RejectsMisconfiguration(t *testing.T) {
	s := store.NewMemoryStore()
	defer s.Close()

	tests := []struct {
		name     string
		limiter  string
		strategy Strategy
		window   time.Duration
		max      int
		store    store.Store
		err      error
	}{
		{name: "zero max", limiter: "a", strategy: FixedWindow, window: time.Second, max: 0, store: s, err: ErrInvalidMaxRequests},
		{name: "negative max", limiter: "a", strategy: FixedWindow, window: time.Second, max: -3, store: s, err: ErrInvalidMaxRequests},
		{name: "zero window", limiter: "a", strategy: SlidingWindow, window: 0, max: 1, store: s, err: ErrInvalidWindow},
		{name: "sub-millisecond window", limiter: "a", strategy: SlidingWindow, window: time.Microsecond, max: 1, store: s, err: ErrInvalidWindow},
		{name: "unknown strategy", limiter: "a", strategy: Strategy(42), window: time.Second, max: 1, store: s, err: ErrUnknownStrategy},
		{name: "nil store", limiter: "a", strategy: TokenBucket, window: time.Second, max: 1, store: nil, err: ErrNilStore},
		{name: "empty name", limiter: "", strategy: TokenBucket, window: time.Second, max: 1, store: s, err: ErrEmptyName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLimiter(tt.limiter, tt.strategy, tt.window, tt.max, tt.store)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestParseStrategy(t *testing.T) {
	for _, s := range []Strategy{FixedWindow, SlidingWindow, TokenBucket} {
		parsed, err := ParseStrategy(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, parsed)
	}
	_, err := ParseStrategy("leaky_bucket")
	assert.ErrorIs(t, err, ErrUnknownStrategy)
	assert.Equal(t, "unknown", Strategy(0).String())
}

func TestLimiter_AuthScenario(t *testing.T) {
	clock := newFakeClock()
	limiter := newTestLimiter(t, FixedWindow, 15*time.Minute, 5, newMemoryStore(t, clock), clock,
		WithMessage("Too many authentication attempts, please try again later."))
	ctx := context.Background()
	req := clientRequest("/api/auth/login", "198.51.100.4")

	for i := 0; i < 5; i++ {
		d := limiter.Check(ctx, req)
		require.False(t, d.Limited, "attempt %d", i+1)
		clock.Advance(time.Second)
	}

	d := limiter.Check(ctx, req)
	require.True(t, d.Limited)
	assert.Equal(t, 429, d.StatusCode())
	require.NotNil(t, d.Response)
	assert.Equal(t, RejectionError, d.Response.Error)
	assert.Equal(t, "Too many authentication attempts, please try again later.", d.Response.Message)
	assert.LessOrEqual(t, d.Response.RetryAfter, int64(900))
	assert.Greater(t, d.Response.RetryAfter, int64(0))
	assert.Greater(t, d.Response.ResetTime, clock.Now().UnixMilli())
	assert.Equal(t, 0, d.RemainingRequests)

	// 其他客户端不受影响
	other := limiter.Check(ctx, clientRequest("/api/auth/login", "198.51.100.5"))
	assert.False(t, other.Limited)
}

func TestLimiter_DefaultMessage(t *testing.T) {
	clock := newFakeClock()
	limiter := newTestLimiter(t, TokenBucket, time.Minute, 1, newMemoryStore(t, clock), clock)
	req := clientRequest("/api/pay", "192.0.2.1")

	limiter.Check(context.Background(), req)
	d := limiter.Check(context.Background(), req)
	require.True(t, d.Limited)
	assert.Equal(t, DefaultMessage, d.Response.Message)
	assert.Equal(t, int64(60), d.Response.RetryAfter)
}

func TestLimiter_FailOpenOnStoreError(t *testing.T) {
	sink := &logSink{}
	clock := newFakeClock()
	limiter := newTestLimiter(t, SlidingWindow, time.Second, 1, &failingStore{err: errBackendDown}, clock,
		WithLogger(sink.logger()))
	req := clientRequest("/api/search", "192.0.2.1")

	for i := 0; i < 3; i++ {
		d := limiter.Check(context.Background(), req)
		assert.False(t, d.Limited)
		assert.True(t, d.FailOpen)
		assert.Nil(t, d.Response)
	}
	assert.Equal(t, 3, sink.count("Rate limit store failure"))
	assert.Equal(t, 3, sink.count(errBackendDown.Error()))
}

func TestLimiter_FailOpenOnStoreTimeout(t *testing.T) {
	sink := &logSink{}
	clock := newFakeClock()
	limiter := newTestLimiter(t, FixedWindow, time.Second, 1, &blockingStore{}, clock,
		WithLogger(sink.logger()), WithStoreTimeout(20*time.Millisecond))

	start := time.Now()
	d := limiter.Check(context.Background(), clientRequest("/", "192.0.2.1"))
	assert.False(t, d.Limited)
	assert.True(t, d.FailOpen)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, sink.count("context deadline exceeded"))
}

func TestLimiter_SkipAndHooks(t *testing.T) {
	clock := newFakeClock()
	var reached []string
	skip, err := NewSkipRule([]string{"10.0.0.0/8"}, []string{"/health"})
	require.NoError(t, err)

	limiter := newTestLimiter(t, FixedWindow, time.Minute, 1, newMemoryStore(t, clock), clock,
		WithSkip(skip),
		WithOnLimitReached(func(req *Request, key string) {
			reached = append(reached, key)
		}))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d := limiter.Check(ctx, clientRequest("/api", "10.1.2.3"))
		assert.False(t, d.Limited)
		assert.True(t, d.Skipped)
		d = limiter.Check(ctx, clientRequest("/health/live", "192.0.2.9"))
		assert.True(t, d.Skipped)
	}

	req := clientRequest("/api", "192.0.2.9")
	assert.False(t, limiter.Check(ctx, req).Limited)
	assert.True(t, limiter.Check(ctx, req).Limited)
	assert.Equal(t, []string{DefaultKey(req)}, reached)
}

func TestLimiter_PanickingHookDoesNotChangeDecision(t *testing.T) {
	clock := newFakeClock()
	limiter := newTestLimiter(t, FixedWindow, time.Minute, 1, newMemoryStore(t, clock), clock,
		WithOnLimitReached(func(*Request, string) { panic("boom") }))
	req := clientRequest("/api", "192.0.2.9")

	limiter.Check(context.Background(), req)
	var d Decision
	assert.NotPanics(t, func() { d = limiter.Check(context.Background(), req) })
	assert.True(t, d.Limited)
}

func TestLimiter_CustomKeyFunc(t *testing.T) {
	clock := newFakeClock()
	limiter := newTestLimiter(t, FixedWindow, time.Minute, 1, newMemoryStore(t, clock), clock,
		WithKeyFunc(func(req *Request) string { return "tenant:" + req.Signature }))

	a := &Request{Path: "/a", ClientAddress: "192.0.2.1", Signature: "acme"}
	b := &Request{Path: "/b", ClientAddress: "192.0.2.2", Signature: "acme"}
	assert.False(t, limiter.Check(context.Background(), a).Limited)
	d := limiter.Check(context.Background(), b)
	assert.True(t, d.Limited, "requests sharing a custom key share a budget")
	assert.Equal(t, "tenant:acme", d.Key)
}

func TestLimiter_ConcurrentRequestsRespectLimit(t *testing.T) {
	for _, strategy := range []Strategy{FixedWindow, SlidingWindow, TokenBucket} {
		t.Run(strategy.String(), func(t *testing.T) {
			clock := newFakeClock()
			limiter := newTestLimiter(t, strategy, time.Minute, 50, newMemoryStore(t, clock), clock)
			req := clientRequest("/api/hot", "192.0.2.50")

			var allowed atomic.Int32
			var wg sync.WaitGroup
			for i := 0; i < 200; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if !limiter.Check(context.Background(), req).Limited {
						allowed.Add(1)
					}
				}()
			}
			wg.Wait()
			assert.Equal(t, int32(50), allowed.Load())
		})
	}
}

func TestLimiter_RedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := store.NewRedisStore(store.NewRedisClient(mr.Addr(), nil), 50)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	clock := newFakeClock()
	clock.Set(30_000)
	limiter := newTestLimiter(t, FixedWindow, time.Minute, 5, s, clock)
	req := clientRequest("/api/orders", "192.0.2.77")

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !limiter.Check(context.Background(), req).Limited {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(5), allowed.Load())

	storageKey := DefaultKey(req) + ":1700000040000"
	assert.True(t, mr.Exists(storageKey))
	assert.Equal(t, 30*time.Second, mr.TTL(storageKey))
}

func BenchmarkLimiter_Check(b *testing.B) {
	s := store.NewMemoryStore()
	defer s.Close()
	limiter, err := NewLimiter("bench", FixedWindow, time.Minute, 1_000_000_000, s)
	require.NoError(b, err)
	req := clientRequest("/api/bench", "192.0.2.1")
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		limiter.Check(ctx, req)
	}
}
