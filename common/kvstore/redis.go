package kvstore

import (
	"context"
	"errors"

	rediscommon "github.com/lyzr/storefront/common/redis"
)

// RedisStore keeps values in Redis under a key prefix
type RedisStore struct {
	client *rediscommon.Client
	prefix string
}

// NewRedisStore creates a store on top of the shared Redis wrapper
func NewRedisStore(client *rediscommon.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// Get implements Store
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, s.prefix+key)
	if errors.Is(err, rediscommon.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(val), true, nil
}

// Set implements Store
func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, s.prefix+key, string(value), 0)
}

// Delete implements Store
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Delete(ctx, s.prefix+key)
}

// Close implements Store. The Redis client is shared and closed by its owner.
func (s *RedisStore) Close() error {
	return nil
}
