// Package store 提供限流计数状态的存储后端
package store

import (
	"context"
	"errors"
	"time"
)

// 存储相关错误定义
var (
	ErrStoreClosed      = errors.New("store is closed")
	ErrTooManyConflicts = errors.New("too many concurrent updates on key")
	ErrNilClient        = errors.New("redis client cannot be nil")
	ErrNoShards         = errors.New("sharded store requires at least one shard")
	ErrNilStore         = errors.New("store cannot be nil")
	ErrNilBreaker       = errors.New("circuit breaker cannot be nil")
)

// UpdateFunc 基于当前值计算新值
// current 为空且 found 为 false 表示键不存在或已过期。
// write 为 false 时不写回，ttl <= 0 表示不过期。
// 后端可能在冲突时多次调用，实现必须是纯函数。
type UpdateFunc func(current []byte, found bool) (next []byte, ttl time.Duration, write bool, err error)

// Store 代表键值计数存储接口
type Store interface {
	// Get 读取键值，键不存在时 found 为 false
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Set 写入键值并设置过期时间
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Update 以原子方式执行读取-计算-写回
	Update(ctx context.Context, key string, fn UpdateFunc) error

	// Increment 原子递增计数并刷新过期时间，返回递增后的值
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Ping 检查后端可用性
	Ping(ctx context.Context) error

	// Close 释放存储资源
	Close() error

	// Type 返回存储类型名称
	Type() string
}
