package roomday

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type memRedisValue struct {
	value     string
	expiresAt *time.Time
}

// memRedis 实现服务用到的 Redis 命令子集
type memRedis struct {
	mu   sync.Mutex
	data map[string]memRedisValue
}

func newMemRedis() *memRedis {
	return &memRedis{data: make(map[string]memRedisValue)}
}

func (m *memRedis) purgeExpiredLocked(key string) bool {
	v, ok := m.data[key]
	if !ok {
		return false
	}
	if v.expiresAt == nil || time.Now().Before(*v.expiresAt) {
		return true
	}
	delete(m.data, key)
	return false
}

func (m *memRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx, "GET", key)
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.purgeExpiredLocked(key) {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(m.data[key].value)
	return cmd
}

func (m *memRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx, "SET", key)
	m.mu.Lock()
	defer m.mu.Unlock()

	var expiresAt *time.Time
	if expiration > 0 {
		t := time.Now().Add(expiration)
		expiresAt = &t
	}
	m.data[key] = memRedisValue{value: fmt.Sprint(value), expiresAt: expiresAt}
	cmd.SetVal("OK")
	return cmd
}

func (m *memRedis) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx, "SETNX", key)
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.purgeExpiredLocked(key) {
		cmd.SetVal(false)
		return cmd
	}
	var expiresAt *time.Time
	if expiration > 0 {
		t := time.Now().Add(expiration)
		expiresAt = &t
	}
	m.data[key] = memRedisValue{value: fmt.Sprint(value), expiresAt: expiresAt}
	cmd.SetVal(true)
	return cmd
}

func (m *memRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx, "DEL", keys)
	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int64
	for _, key := range keys {
		if !m.purgeExpiredLocked(key) {
			continue
		}
		delete(m.data, key)
		deleted++
	}
	cmd.SetVal(deleted)
	return cmd
}

func (m *memRedis) Exists(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx, "EXISTS", keys)
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for _, key := range keys {
		if m.purgeExpiredLocked(key) {
			count++
		}
	}
	cmd.SetVal(count)
	return cmd
}

func (m *memRedis) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.purgeExpiredLocked(key)
}

var _ redisCmdable = (*memRedis)(nil)

func newTestRedis(t *testing.T) *memRedis {
	t.Helper()
	return newMemRedis()
}
