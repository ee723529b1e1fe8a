package store

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/buraksezer/consistent"
	"github.com/cespare/xxhash/v2"
)

// ringHasher 一致性哈希环使用的哈希函数
type ringHasher struct{}

func (ringHasher) Sum64(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// shardMember 哈希环成员
type shardMember string

func (m shardMember) String() string {
	return string(m)
}

// ShardedStore 代表按一致性哈希将键分布到多个后端的存储
// 同一个键始终落在同一个后端，Update 的原子性由该后端保证。
type ShardedStore struct {
	ring   *consistent.Consistent
	shards map[string]Store
	names  []string
}

// NewShardedStore 创建分片存储，map 键为成员名称（通常是节点地址）
func NewShardedStore(shards map[string]Store) (*ShardedStore, error) {
	if len(shards) == 0 {
		return nil, ErrNoShards
	}

	names := make([]string, 0, len(shards))
	members := make([]consistent.Member, 0, len(shards))
	for name, s := range shards {
		if s == nil {
			return nil, ErrNilStore
		}
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		members = append(members, shardMember(name))
	}

	cfg := consistent.Config{
		PartitionCount:    271,
		ReplicationFactor: 20,
		Load:              1.25,
		Hasher:            ringHasher{},
	}

	return &ShardedStore{
		ring:   consistent.New(members, cfg),
		shards: shards,
		names:  names,
	}, nil
}

// Locate 返回键所属的成员名称
func (s *ShardedStore) Locate(key string) string {
	return s.ring.LocateKey([]byte(key)).String()
}

func (s *ShardedStore) pick(key string) Store {
	return s.shards[s.Locate(key)]
}

func (s *ShardedStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return s.pick(key).Get(ctx, key)
}

func (s *ShardedStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.pick(key).Set(ctx, key, value, ttl)
}

func (s *ShardedStore) Update(ctx context.Context, key string, fn UpdateFunc) error {
	return s.pick(key).Update(ctx, key, fn)
}

func (s *ShardedStore) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	return s.pick(key).Increment(ctx, key, ttl)
}

// Ping 检查所有分片，任一失败即返回错误
func (s *ShardedStore) Ping(ctx context.Context) error {
	var errs []error
	for _, name := range s.names {
		if err := s.shards[name].Ping(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *ShardedStore) Close() error {
	var errs []error
	for _, name := range s.names {
		if err := s.shards[name].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *ShardedStore) Type() string {
	return s.shards[s.names[0]].Type()
}
