package kv

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is the distributed Store implementation backed by go-redis.
// It is shared across all process instances and survives restarts within
// the Redis retention. Expiry is handled natively by Redis.
type RedisStore struct {
	db redis.UniversalClient
}

// NewRedisStore wraps an established Redis client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{db: client}
}

// Get returns the value for key; redis.Nil is mapped to ErrNotFound.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.db.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return val, err
}

// Set stores value with expiration. Zero ttl means no expiration.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.db.Set(ctx, key, value, ttl).Err()
}

// Delete removes a key. Deleting an absent key is not an error in Redis.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.db.Del(ctx, key).Err()
}

// Conn returns the underlying Redis client for advanced operations.
func (s *RedisStore) Conn() redis.UniversalClient {
	return s.db
}
