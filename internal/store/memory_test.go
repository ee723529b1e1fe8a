package store

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock 可手动推进的时钟
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func counterUpdate(current []byte, found bool) ([]byte, time.Duration, bool, error) {
	n := 0
	if found {
		n, _ = strconv.Atoi(string(current))
	}
	return []byte(strconv.Itoa(n + 1)), time.Minute, true, nil
}

func TestMemoryStore_GetSetExpiry(t *testing.T) {
	clock := newFakeClock()
	s := NewMemoryStore(WithMemoryClock(clock.Now))
	defer s.Close()
	ctx := context.Background()

	_, found, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Second))
	value, found, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("v"), value)

	clock.Advance(time.Second)
	_, found, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found, "entry must expire exactly at its ttl")
}

func TestMemoryStore_SetWithoutTTLNeverExpires(t *testing.T) {
	clock := newFakeClock()
	s := NewMemoryStore(WithMemoryClock(clock.Now))
	defer s.Close()

	require.NoError(t, s.Set(context.Background(), "k", []byte("v"), 0))
	clock.Advance(365 * 24 * time.Hour)
	_, found, err := s.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestMemoryStore_UpdateSkipsWriteAndPropagatesError(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	err := s.Update(ctx, "k", func(current []byte, found bool) ([]byte, time.Duration, bool, error) {
		assert.False(t, found)
		return []byte("ignored"), time.Minute, false, nil
	})
	require.NoError(t, err)
	_, found, _ := s.Get(ctx, "k")
	assert.False(t, found)

	boom := errors.New("boom")
	err = s.Update(ctx, "k", func([]byte, bool) ([]byte, time.Duration, bool, error) {
		return nil, 0, true, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestMemoryStore_ConcurrentUpdatesAreAtomic(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	const workers, perWorker = 16, 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				assert.NoError(t, s.Update(ctx, "counter", counterUpdate))
			}
		}()
	}
	wg.Wait()

	value, found, err := s.Get(ctx, "counter")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, strconv.Itoa(workers*perWorker), string(value))
}

func TestMemoryStore_IncrementRefreshesTTL(t *testing.T) {
	clock := newFakeClock()
	s := NewMemoryStore(WithMemoryClock(clock.Now))
	defer s.Close()
	ctx := context.Background()

	n, err := s.Increment(ctx, "v", 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	clock.Advance(8 * time.Second)
	n, err = s.Increment(ctx, "v", 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// 第二次递增刷新了过期时间
	clock.Advance(8 * time.Second)
	value, found, err := s.Get(ctx, "v")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "2", string(value))

	clock.Advance(2 * time.Second)
	n, err = s.Increment(ctx, "v", 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "expired counter restarts from zero")
}

func TestMemoryStore_ConcurrentIncrement(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	var wg sync.WaitGroup
	var maxSeen int64
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := s.Increment(context.Background(), "v", time.Minute)
			assert.NoError(t, err)
			for {
				cur := atomic.LoadInt64(&maxSeen)
				if n <= cur || atomic.CompareAndSwapInt64(&maxSeen, cur, n) {
					break
				}
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(100), maxSeen)
}

func TestMemoryStore_JanitorEvictsExpired(t *testing.T) {
	clock := newFakeClock()
	s := NewMemoryStore(WithMemoryClock(clock.Now), WithCleanupInterval(10*time.Millisecond))
	defer s.Close()

	require.NoError(t, s.Set(context.Background(), "a", []byte("1"), time.Second))
	require.NoError(t, s.Set(context.Background(), "b", []byte("1"), time.Hour))
	clock.Advance(2 * time.Second)

	assert.Eventually(t, func() bool { return s.Len() == 1 }, time.Second, 5*time.Millisecond)
}

func TestMemoryStore_Closed(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	ctx := context.Background()
	_, _, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrStoreClosed)
	assert.ErrorIs(t, s.Set(ctx, "k", nil, 0), ErrStoreClosed)
	assert.ErrorIs(t, s.Update(ctx, "k", counterUpdate), ErrStoreClosed)
	_, err = s.Increment(ctx, "k", 0)
	assert.ErrorIs(t, err, ErrStoreClosed)
	assert.ErrorIs(t, s.Ping(ctx), ErrStoreClosed)
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Update(ctx, "k", counterUpdate), context.Canceled)
}

func BenchmarkMemoryStore_Update(b *testing.B) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			_ = s.Update(ctx, "bench:"+strconv.Itoa(i%64), counterUpdate)
			i++
		}
	})
}
