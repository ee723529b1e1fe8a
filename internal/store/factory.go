package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shengyanli1982/ratewarden/internal/breaker"
	"github.com/shengyanli1982/ratewarden/internal/config"
	"github.com/shengyanli1982/ratewarden/internal/constants"
)

// ErrUnknownStoreType 未知的存储类型
var ErrUnknownStoreType = errors.New("unknown store type")

// CreateFromConfig 根据配置创建存储
// 配置了熔断器时返回 BreakerStore，onChange 接收熔断状态变化。
func CreateFromConfig(cfg *config.StoreConfig, onChange breaker.StateChangeFunc) (Store, error) {
	var (
		base Store
		err  error
	)

	switch cfg.Type {
	case constants.StoreTypeMemory, "":
		interval := time.Duration(constants.DefaultCleanupInterval) * time.Millisecond
		if cfg.Memory != nil && cfg.Memory.CleanupInterval > 0 {
			interval = time.Duration(cfg.Memory.CleanupInterval) * time.Millisecond
		}
		base = NewMemoryStore(WithCleanupInterval(interval))
	case constants.StoreTypeRedis:
		base, err = newRedisFromConfig(cfg)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownStoreType, cfg.Type)
	}

	if cfg.Breaker == nil {
		return base, nil
	}

	settings := breaker.CreateFromConfig(constants.DefaultBreakerName, cfg.Breaker, onChange)
	settings.IsSuccessful = isBackendHealthy
	cb, err := breaker.NewFactory().Create(constants.DefaultBreakerName, settings)
	if err != nil {
		_ = base.Close()
		return nil, err
	}
	return NewBreakerStore(base, cb)
}

// isBackendHealthy 乐观锁冲突和调用方取消不计入后端失败
func isBackendHealthy(err error) bool {
	return err == nil || errors.Is(err, ErrTooManyConflicts) || errors.Is(err, context.Canceled)
}

// newRedisFromConfig 单地址时返回 RedisStore，多地址时返回 ShardedStore
func newRedisFromConfig(cfg *config.StoreConfig) (Store, error) {
	if cfg.Redis == nil || len(cfg.Redis.Addresses) == 0 {
		return nil, fmt.Errorf("%w: redis addresses are required", ErrUnknownStoreType)
	}

	shards := make(map[string]Store, len(cfg.Redis.Addresses))
	for _, addr := range cfg.Redis.Addresses {
		client := NewRedisClient(addr, cfg.Redis)
		s, err := NewRedisStore(client, cfg.MaxRetries)
		if err != nil {
			return nil, err
		}
		shards[addr] = s
	}

	if len(shards) == 1 {
		return shards[cfg.Redis.Addresses[0]], nil
	}
	return NewShardedStore(shards)
}

// NewRedisClient 创建单节点 Redis 客户端
func NewRedisClient(addr string, cfg *config.RedisStoreConfig) *redis.Client {
	opts := &redis.Options{Addr: addr}
	if cfg != nil {
		opts.Password = cfg.Password
		opts.DB = cfg.DB
		opts.PoolSize = cfg.PoolSize
		if cfg.DialTimeout > 0 {
			opts.DialTimeout = time.Duration(cfg.DialTimeout) * time.Millisecond
		}
	}
	return redis.NewClient(opts)
}
