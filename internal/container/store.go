package container

import (
	"context"
	"fmt"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/serroba/ip-rate-limiter/internal/health"
	"github.com/serroba/ip-rate-limiter/internal/ratelimit"
	"github.com/serroba/ip-rate-limiter/internal/store"
)

// RedisConnection owns the Redis client so the injector can close it.
type RedisConnection struct {
	Client *redis.Client
}

// Shutdown closes the client.
func (c *RedisConnection) Shutdown() error {
	return c.Client.Close()
}

// MemcacheConnection owns the memcached client so the injector can close it.
type MemcacheConnection struct {
	Client *memcache.Client
}

// Shutdown closes the client.
func (c *MemcacheConnection) Shutdown() error {
	return c.Client.Close()
}

// RedisPackage provides the *RedisConnection.
func RedisPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*RedisConnection, error) {
		options := do.MustInvoke[*Options](i)

		client := redis.NewClient(&redis.Options{
			Addr: options.RedisAddr,
		})

		return &RedisConnection{Client: client}, nil
	})
}

// MemcachePackage provides the *MemcacheConnection.
func MemcachePackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*MemcacheConnection, error) {
		options := do.MustInvoke[*Options](i)

		client := memcache.New(options.MemcacheAddr)
		client.Timeout = 500 * time.Millisecond

		return &MemcacheConnection{Client: client}, nil
	})
}

// CounterStorePackage provides the ratelimit.Store selected by Options.Backend
// and the matching health.Checker.
func CounterStorePackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (ratelimit.Store, error) {
		options := do.MustInvoke[*Options](i)
		window := options.WindowDuration()
		prefix := store.WithKeyPrefix(options.KeyPrefix)

		switch options.Backend {
		case BackendMemory:
			return store.NewMemoryCounterStore(window), nil
		case BackendRedis:
			conn := do.MustInvoke[*RedisConnection](i)

			return store.NewRedisCounterStore(conn.Client, window, prefix), nil
		case BackendMemcache:
			conn := do.MustInvoke[*MemcacheConnection](i)

			return store.NewMemcacheCounterStore(conn.Client, window, prefix), nil
		default:
			return nil, fmt.Errorf("unknown counter store backend %q", options.Backend)
		}
	})

	do.Provide(injector, func(i *do.Injector) (health.Checker, error) {
		options := do.MustInvoke[*Options](i)

		switch options.Backend {
		case BackendRedis:
			return health.NewRedisChecker(do.MustInvoke[*RedisConnection](i).Client), nil
		case BackendMemcache:
			return health.NewMemcacheChecker(do.MustInvoke[*MemcacheConnection](i).Client), nil
		default:
			return health.MemoryChecker{}, nil
		}
	})
}

// RateLimitPackage provides the *ratelimit.Limiter.
func RateLimitPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*ratelimit.Limiter, error) {
		options := do.MustInvoke[*Options](i)
		counterStore := do.MustInvoke[ratelimit.Store](i)

		return ratelimit.New(counterStore, options.LimiterOptions())
	})
}

// PingStore fails when the configured counter store is unreachable.
func PingStore(ctx context.Context, injector *do.Injector) error {
	checker := do.MustInvoke[health.Checker](injector)

	return checker.Ping(ctx)
}
