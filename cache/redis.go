package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig configures a RedisStore.
type RedisConfig struct {
	Addr     string
	DB       int
	Password string
}

// removeIfScript deletes KEYS[1] only while it holds ARGV[1].
var removeIfScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisStore is a Store backed by Redis. Entries outlive the process.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore creates a RedisStore from cfg.
func NewRedisStore(cfg RedisConfig) *RedisStore {
	return NewRedisStoreFromClient(redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		DB:       cfg.DB,
		Password: cfg.Password,
	}))
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// Get returns the value stored under key.
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %q: %w", key, err)
	}
	return v, true, nil
}

// Set stores value under key without a server-side expiry.
func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	return s.SetWithTTL(ctx, key, value, 0)
}

// SetWithTTL stores value under key and lets Redis drop it after ttl.
// A non-positive ttl keeps the key until it is removed.
func (s *RedisStore) SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := s.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

// Remove deletes key. Idempotent.
func (s *RedisStore) Remove(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %q: %w", key, err)
	}
	return nil
}

// RemoveIf deletes key only while it holds value.
func (s *RedisStore) RemoveIf(ctx context.Context, key, value string) error {
	if err := removeIfScript.Run(ctx, s.rdb, []string{key}, value).Err(); err != nil {
		return fmt.Errorf("redis del %q: %w", key, err)
	}
	return nil
}

// Ping checks connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

var (
	_ Store          = (*RedisStore)(nil)
	_ CompareRemover = (*RedisStore)(nil)
	_ ExpiringStore  = (*RedisStore)(nil)
	_ Pinger         = (*RedisStore)(nil)
)
