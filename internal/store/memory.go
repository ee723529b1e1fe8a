package store

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/shengyanli1982/ratewarden/internal/constants"
)

// memoryShardCount 内存存储分段锁数量
const memoryShardCount = 32

// memoryEntry 内存中的单个键值
type memoryEntry struct {
	value     []byte
	expiresAt time.Time // 零值表示不过期
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// memoryShard 带独立锁的分段
type memoryShard struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
}

// MemoryOption 内存存储选项
type MemoryOption func(*MemoryStore)

// WithCleanupInterval 设置过期键清理周期
func WithCleanupInterval(interval time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		if interval > 0 {
			s.cleanupInterval = interval
		}
	}
}

// WithMemoryClock 设置内存存储使用的时钟，用于测试
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// MemoryStore 代表进程内存储，仅适用于单实例部署
// 每个分段内的 Update 在锁内完成，天然原子。
type MemoryStore struct {
	shards          [memoryShardCount]*memoryShard
	cleanupInterval time.Duration
	now             func() time.Time
	stopCh          chan struct{}
	wg              sync.WaitGroup
	closeOnce       sync.Once
	closed          chan struct{}
}

// NewMemoryStore 创建内存存储并启动过期清理协程
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		cleanupInterval: time.Duration(constants.DefaultCleanupInterval) * time.Millisecond,
		now:             time.Now,
		stopCh:          make(chan struct{}),
		closed:          make(chan struct{}),
	}
	for i := range s.shards {
		s.shards[i] = &memoryShard{entries: make(map[string]*memoryEntry)}
	}
	for _, opt := range opts {
		opt(s)
	}

	s.wg.Add(1)
	go s.janitor()

	return s
}

func (s *MemoryStore) shard(key string) *memoryShard {
	return s.shards[xxhash.Sum64String(key)%memoryShardCount]
}

func (s *MemoryStore) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

func (s *MemoryStore) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return s.now().Add(ttl)
}

// lookup 在持锁状态下读取未过期的键
func (sh *memoryShard) lookup(key string, now time.Time) (*memoryEntry, bool) {
	entry, ok := sh.entries[key]
	if !ok {
		return nil, false
	}
	if entry.expired(now) {
		delete(sh.entries, key)
		return nil, false
	}
	return entry, true
}

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if s.isClosed() {
		return nil, false, ErrStoreClosed
	}

	sh := s.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	entry, ok := sh.lookup(key, s.now())
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), entry.value...), true, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.isClosed() {
		return ErrStoreClosed
	}

	sh := s.shard(key)
	sh.mu.Lock()
	sh.entries[key] = &memoryEntry{value: append([]byte(nil), value...), expiresAt: s.expiry(ttl)}
	sh.mu.Unlock()
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, key string, fn UpdateFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.isClosed() {
		return ErrStoreClosed
	}

	sh := s.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	var current []byte
	entry, found := sh.lookup(key, s.now())
	if found {
		current = append([]byte(nil), entry.value...)
	}

	next, ttl, write, err := fn(current, found)
	if err != nil || !write {
		return err
	}
	sh.entries[key] = &memoryEntry{value: next, expiresAt: s.expiry(ttl)}
	return nil
}

// Increment 递增计数，值以十进制字符串保存，与 Redis INCR 保持一致
func (s *MemoryStore) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s.isClosed() {
		return 0, ErrStoreClosed
	}

	sh := s.shard(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	var count int64
	if entry, ok := sh.lookup(key, s.now()); ok {
		n, err := strconv.ParseInt(string(entry.value), 10, 64)
		if err != nil {
			return 0, err
		}
		count = n
	}
	count++
	sh.entries[key] = &memoryEntry{value: []byte(strconv.FormatInt(count, 10)), expiresAt: s.expiry(ttl)}
	return count, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	if s.isClosed() {
		return ErrStoreClosed
	}
	return ctx.Err()
}

// Len 返回当前保存的键数量（含尚未清理的过期键）
func (s *MemoryStore) Len() int {
	total := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		total += len(sh.entries)
		sh.mu.Unlock()
	}
	return total
}

// Close 停止清理协程，可重复调用
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
		close(s.stopCh)
		s.wg.Wait()
	})
	return nil
}

func (s *MemoryStore) Type() string {
	return constants.StoreTypeMemory
}

// janitor 周期性删除过期键
func (s *MemoryStore) janitor() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.evictExpired()
		}
	}
}

func (s *MemoryStore) evictExpired() {
	now := s.now()
	for _, sh := range s.shards {
		sh.mu.Lock()
		for key, entry := range sh.entries {
			if entry.expired(now) {
				delete(sh.entries, key)
			}
		}
		sh.mu.Unlock()
	}
}
