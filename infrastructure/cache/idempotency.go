/*
Package cache 结账幂等键存储。

键的生命周期：Claim 写入占位值 -> 结账成功后 Complete 写入订单组 ID -> 到期自动删除。
结账失败时 Release 删除占位，客户端可以用同一个键重试。
*/
package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix    = "idem:"
	pendingValue = "__pending__"

	// DefaultTTL 占位与结果共用同一个 TTL
	DefaultTTL = 24 * time.Hour
)

// ============================================================================
// Redis 实现
// ============================================================================

// RedisIdempotencyStore 基于 SETNX 的幂等键存储
type RedisIdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisIdempotencyStore 创建 Redis 幂等存储
func NewRedisIdempotencyStore(client *redis.Client, ttl time.Duration) *RedisIdempotencyStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisIdempotencyStore{client: client, ttl: ttl}
}

func (s *RedisIdempotencyStore) Get(ctx context.Context, key string) (string, bool, bool, error) {
	val, err := s.client.Get(ctx, keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, false, nil
	}
	if err != nil {
		return "", false, false, err
	}
	if val == pendingValue {
		return "", true, false, nil
	}
	return val, true, true, nil
}

func (s *RedisIdempotencyStore) Claim(ctx context.Context, key string) (bool, error) {
	return s.client.SetNX(ctx, keyPrefix+key, pendingValue, s.ttl).Result()
}

func (s *RedisIdempotencyStore) Complete(ctx context.Context, key, result string) error {
	return s.client.Set(ctx, keyPrefix+key, result, s.ttl).Err()
}

func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	return s.client.Del(ctx, keyPrefix+key).Err()
}

// Ping 就绪检查
func (s *RedisIdempotencyStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// ============================================================================
// 内存实现（database.type=memory 或未启用 Redis 时使用）
// ============================================================================

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryIdempotencyStore 进程内幂等存储
type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryIdempotencyStore 创建内存幂等存储
func NewMemoryIdempotencyStore(ttl time.Duration) *MemoryIdempotencyStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryIdempotencyStore{entries: make(map[string]memoryEntry), ttl: ttl, now: time.Now}
}

// lookup 调用方持有锁；过期条目顺带删除
func (s *MemoryIdempotencyStore) lookup(key string) (memoryEntry, bool) {
	e, ok := s.entries[key]
	if ok && !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return memoryEntry{}, false
	}
	return e, ok
}

func (s *MemoryIdempotencyStore) Get(_ context.Context, key string) (string, bool, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.lookup(key)
	if !ok {
		return "", false, false, nil
	}
	if e.value == pendingValue {
		return "", true, false, nil
	}
	return e.value, true, true, nil
}

func (s *MemoryIdempotencyStore) Claim(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lookup(key); ok {
		return false, nil
	}
	s.entries[key] = memoryEntry{value: pendingValue, expiresAt: s.now().Add(s.ttl)}
	return true, nil
}

func (s *MemoryIdempotencyStore) Complete(_ context.Context, key, result string) error {
	if strings.TrimSpace(result) == "" {
		return errors.New("idempotency result cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{value: result, expiresAt: s.now().Add(s.ttl)}
	return nil
}

func (s *MemoryIdempotencyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}
