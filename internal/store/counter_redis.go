package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/ip-rate-limiter/internal/ratelimit"
)

// RedisCounterStore is a Redis implementation of ratelimit.Store.
// Window expiry is delegated to the key TTL.
type RedisCounterStore struct {
	client redis.Cmdable
	prefix string
	window time.Duration
}

// NewRedisCounterStore creates a new Redis-backed counter store.
func NewRedisCounterStore(client redis.Cmdable, window time.Duration, opts ...Option) *RedisCounterStore {
	return &RedisCounterStore{
		client: client,
		prefix: newConfig(opts).prefix,
		window: window,
	}
}

func (r *RedisCounterStore) Get(ctx context.Context, key string) (int64, bool, error) {
	value, err := r.client.Get(ctx, r.prefix+key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}

		return 0, false, ratelimit.NewStoreError("get", key, err)
	}

	return value, true, nil
}

// Update overwrites the value of an existing key keeping its TTL, so the window
// is not extended. A missing key is created with the full window as TTL.
func (r *RedisCounterStore) Update(ctx context.Context, key string, value int64) error {
	k := r.prefix + key

	err := r.client.SetArgs(ctx, k, value, redis.SetArgs{Mode: "XX", KeepTTL: true}).Err()
	if err == nil {
		return nil
	}

	if !errors.Is(err, redis.Nil) {
		return ratelimit.NewStoreError("update", key, err)
	}

	if err := r.client.Set(ctx, k, value, r.window).Err(); err != nil {
		return ratelimit.NewStoreError("update", key, err)
	}

	return nil
}

func (r *RedisCounterStore) Del(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return ratelimit.NewStoreError("del", key, err)
	}

	return nil
}

// Compile-time check.
var _ ratelimit.Store = (*RedisCounterStore)(nil)
