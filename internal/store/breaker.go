package store

import (
	"context"
	"time"

	"github.com/shengyanli1982/ratewarden/internal/breaker"
)

// getResult Get 调用在熔断器内的返回值
type getResult struct {
	value []byte
	found bool
}

// BreakerStore 代表带熔断保护的存储装饰器
// 熔断打开时直接返回错误，调用方据此快速放行。
type BreakerStore struct {
	next Store
	cb   breaker.CircuitBreaker
}

// NewBreakerStore 使用熔断器包装存储
func NewBreakerStore(next Store, cb breaker.CircuitBreaker) (*BreakerStore, error) {
	if next == nil {
		return nil, ErrNilStore
	}
	if cb == nil {
		return nil, ErrNilBreaker
	}
	return &BreakerStore{next: next, cb: cb}, nil
}

// Breaker 返回内部熔断器
func (s *BreakerStore) Breaker() breaker.CircuitBreaker {
	return s.cb
}

func (s *BreakerStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	res, err := s.cb.Execute(func() (interface{}, error) {
		value, found, err := s.next.Get(ctx, key)
		return getResult{value: value, found: found}, err
	})
	if err != nil {
		return nil, false, err
	}
	r := res.(getResult)
	return r.value, r.found, nil
}

func (s *BreakerStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.next.Set(ctx, key, value, ttl)
	})
	return err
}

func (s *BreakerStore) Update(ctx context.Context, key string, fn UpdateFunc) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, s.next.Update(ctx, key, fn)
	})
	return err
}

func (s *BreakerStore) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	res, err := s.cb.Execute(func() (interface{}, error) {
		return s.next.Increment(ctx, key, ttl)
	})
	if err != nil {
		return 0, err
	}
	return res.(int64), nil
}

// Ping 绕过熔断器直接探测后端
func (s *BreakerStore) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

func (s *BreakerStore) Close() error {
	return s.next.Close()
}

func (s *BreakerStore) Type() string {
	return s.next.Type()
}
