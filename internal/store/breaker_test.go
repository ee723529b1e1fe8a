package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/shengyanli1982/ratewarden/internal/breaker"
	"github.com/shengyanli1982/ratewarden/internal/config"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBreakerStore_Errors(t *testing.T) {
	cb := breaker.NewCircuitBreaker("store", breaker.DefaultSettings())
	_, err := NewBreakerStore(nil, cb)
	assert.ErrorIs(t, err, ErrNilStore)
	_, err = NewBreakerStore(NewMemoryStore(), nil)
	assert.ErrorIs(t, err, ErrNilBreaker)
}

func TestBreakerStore_PassesThrough(t *testing.T) {
	mem := NewMemoryStore()
	s, err := NewBreakerStore(mem, breaker.NewCircuitBreaker("store", breaker.DefaultSettings()))
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("v"), time.Minute))
	value, found, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("v"), value)

	require.NoError(t, s.Update(ctx, "c", counterUpdate))
	n, err := s.Increment(ctx, "n", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, "memory", s.Type())
}

func TestBreakerStore_OpensOnBackendFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	var states []gobreaker.State

	s, err := CreateFromConfig(&config.StoreConfig{
		Type:       "redis",
		MaxRetries: 2,
		Redis:      &config.RedisStoreConfig{Addresses: []string{mr.Addr()}},
		Breaker:    &config.BreakerConfig{Threshold: 0.5, Cooldown: 60000},
	}, func(_ string, _, to gobreaker.State) {
		states = append(states, to)
	})
	require.NoError(t, err)
	defer s.Close()

	bs, ok := s.(*BreakerStore)
	require.True(t, ok)

	mr.SetError("ERR backend unavailable")
	for i := 0; i < 10; i++ {
		assert.Error(t, bs.Update(context.Background(), "k", counterUpdate))
	}
	assert.Equal(t, gobreaker.StateOpen, bs.Breaker().State())
	assert.Equal(t, []gobreaker.State{gobreaker.StateOpen}, states)

	// 熔断打开后不再访问后端
	mr.SetError("")
	err = bs.Update(context.Background(), "k", counterUpdate)
	assert.True(t, breaker.IsOpen(err))
	assert.False(t, mr.Exists("k"))
}

func TestIsBackendHealthy(t *testing.T) {
	assert.True(t, isBackendHealthy(nil))
	assert.True(t, isBackendHealthy(ErrTooManyConflicts))
	assert.True(t, isBackendHealthy(context.Canceled))
	assert.False(t, isBackendHealthy(context.DeadlineExceeded))
	assert.False(t, isBackendHealthy(ErrStoreClosed))
}

func TestCreateFromConfig(t *testing.T) {
	s, err := CreateFromConfig(&config.StoreConfig{Type: "memory"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)
	require.NoError(t, s.Close())

	_, err = CreateFromConfig(&config.StoreConfig{Type: "etcd"}, nil)
	assert.ErrorIs(t, err, ErrUnknownStoreType)

	a, b := miniredis.RunT(t), miniredis.RunT(t)
	s, err = CreateFromConfig(&config.StoreConfig{
		Type:  "redis",
		Redis: &config.RedisStoreConfig{Addresses: []string{a.Addr(), b.Addr()}},
	}, nil)
	require.NoError(t, err)
	assert.IsType(t, &ShardedStore{}, s)
	require.NoError(t, s.Close())
}
