package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shengyanli1982/ratewarden/internal/constants"
)

// RedisStore 代表基于 Redis 的共享存储
// Update 使用 WATCH/MULTI 乐观锁，冲突时有限次重试。
type RedisStore struct {
	client     redis.UniversalClient
	maxRetries int
}

// NewRedisStore 基于已有客户端创建 Redis 存储
func NewRedisStore(client redis.UniversalClient, maxRetries int) (*RedisStore, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	if maxRetries <= 0 {
		maxRetries = constants.DefaultStoreMaxRetries
	}
	return &RedisStore{client: client, maxRetries: maxRetries}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, normalizeTTL(ttl)).Err()
}

func (s *RedisStore) Update(ctx context.Context, key string, fn UpdateFunc) error {
	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		found := true
		if errors.Is(err, redis.Nil) {
			current, found, err = nil, false, nil
		}
		if err != nil {
			return err
		}

		next, ttl, write, err := fn(current, found)
		if err != nil || !write {
			return err
		}

		// 键在 WATCH 之后被修改时 EXEC 返回 TxFailedErr
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, normalizeTTL(ttl))
			return nil
		})
		return err
	}

	for i := 0; i < s.maxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrTooManyConflicts
}

func (s *RedisStore) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Type() string {
	return constants.StoreTypeRedis
}

// normalizeTTL 将非正值转换为不过期
func normalizeTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	// Redis 过期时间最小精度为毫秒
	if ttl < time.Millisecond {
		return time.Millisecond
	}
	return ttl
}
