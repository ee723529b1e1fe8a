package ratelimit

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
	"github.com/shengyanli1982/ratewarden/internal/store"
	"github.com/stretchr/testify/require"
)

// 对齐到分钟边界的基准时间
const baseMs int64 = 1_700_000_040_000

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.UnixMilli(baseMs)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(offsetMs int64) {
	c.mu.Lock()
	c.now = time.UnixMilli(baseMs + offsetMs)
	c.mu.Unlock()
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// logSink 收集 JSON 格式的日志行
type logSink struct {
	mu    sync.Mutex
	lines []string
}

func (s *logSink) logger() *logr.Logger {
	l := funcr.NewJSON(func(obj string) {
		s.mu.Lock()
		s.lines = append(s.lines, obj)
		s.mu.Unlock()
	}, funcr.Options{Verbosity: 1})
	return &l
}

func (s *logSink) count(substr string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, line := range s.lines {
		if strings.Contains(line, substr) {
			n++
		}
	}
	return n
}

// failingStore 所有操作都返回错误
type failingStore struct {
	err error
}

func (s *failingStore) Get(context.Context, string) ([]byte, bool, error) { return nil, false, s.err }
func (s *failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return s.err
}
func (s *failingStore) Update(context.Context, string, store.UpdateFunc) error { return s.err }
func (s *failingStore) Increment(context.Context, string, time.Duration) (int64, error) {
	return 0, s.err
}
func (s *failingStore) Ping(context.Context) error { return s.err }
func (s *failingStore) Close() error               { return nil }
func (s *failingStore) Type() string               { return "failing" }

// blockingStore 阻塞直到上下文结束
type blockingStore struct {
	failingStore
}

func (s *blockingStore) Update(ctx context.Context, _ string, _ store.UpdateFunc) error {
	<-ctx.Done()
	return ctx.Err()
}

var errBackendDown = errors.New("connection refused")

func newMemoryStore(t *testing.T, clock *fakeClock) *store.MemoryStore {
	t.Helper()
	s := store.NewMemoryStore(store.WithMemoryClock(clock.Now))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestLimiter(t *testing.T, strategy Strategy, window time.Duration, max int, s store.Store, clock *fakeClock, opts ...Option) *Limiter {
	t.Helper()
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	l, err := NewLimiter("test", strategy, window, max, s, opts...)
	require.NoError(t, err)
	return l
}

func clientRequest(path, addr string) *Request {
	return &Request{Path: path, Method: "POST", ClientAddress: addr, Signature: "test-agent/1.0"}
}
