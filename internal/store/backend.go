// internal/store/backend.go
package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Backend is the key/value surface the cache needs.
type Backend interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Get returns found=false for a missing key.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Delete(ctx context.Context, key string) error
}

type redisBackend struct{ rdb *redis.Client }

// NewRedis returns a Backend over rdb.
func NewRedis(rdb *redis.Client) Backend { return redisBackend{rdb: rdb} }

func (b redisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return b.rdb.Set(ctx, key, value, ttl).Err()
}

func (b redisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := b.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (b redisBackend) Delete(ctx context.Context, key string) error {
	return b.rdb.Del(ctx, key).Err()
}
