package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"streetcrime/internal/types"

	"github.com/redis/go-redis/v9"
)

// redisClient is the subset of *redis.Client the store needs.
type redisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// RedisStore is a Store backed by Redis. Keys are prefixed so the service can
// share a database with other tenants.
type RedisStore struct {
	client redisClient
	prefix string
}

// OpenRedis parses a redis:// URL and returns a client. It does not dial.
func OpenRedis(rawURL types.SecretString) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL.Unmask())
	if err != nil {
		return nil, fmt.Errorf("parsing redis url for %s: %w", rawURL.Host(), err)
	}
	return redis.NewClient(opts), nil
}

// NewRedisStore wraps a Redis client.
func NewRedisStore(client redisClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// Get returns the stored document, or ok=false when the key is absent.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set stores value with the given expiry.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefix+key, value, ttl).Err()
}

// Ping checks connectivity; used by the health probe.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

var _ Store = (*RedisStore)(nil)
