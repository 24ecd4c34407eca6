package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/serroba/ip-rate-limiter/internal/ratelimit"
	"github.com/serroba/ip-rate-limiter/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const memcacheTestKey = store.DefaultKeyPrefix + "1.2.3.4"

// mockMemcache is an in-memory store.MemcacheClient without expiry.
type mockMemcache struct {
	items  map[string]*memcache.Item
	getErr error
	setErr error
	delErr error
}

func newMockMemcache() *mockMemcache {
	return &mockMemcache{items: make(map[string]*memcache.Item)}
}

func (m *mockMemcache) Get(key string) (*memcache.Item, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}

	item, ok := m.items[key]
	if !ok {
		return nil, memcache.ErrCacheMiss
	}

	return item, nil
}

func (m *mockMemcache) Set(item *memcache.Item) error {
	if m.setErr != nil {
		return m.setErr
	}

	m.items[item.Key] = item

	return nil
}

func (m *mockMemcache) Delete(key string) error {
	if m.delErr != nil {
		return m.delErr
	}

	if _, ok := m.items[key]; !ok {
		return memcache.ErrCacheMiss
	}

	delete(m.items, key)

	return nil
}

func TestMemcacheCounterStore(t *testing.T) {
	ctx := context.Background()

	t.Run("missing key is absent", func(t *testing.T) {
		s := store.NewMemcacheCounterStore(newMockMemcache(), time.Minute)

		value, found, err := s.Get(ctx, "1.2.3.4")

		require.NoError(t, err)
		assert.False(t, found)
		assert.Zero(t, value)
	})

	t.Run("update then get returns the written value", func(t *testing.T) {
		client := newMockMemcache()
		s := store.NewMemcacheCounterStore(client, time.Minute)

		require.NoError(t, s.Update(ctx, "1.2.3.4", 4))

		value, found, err := s.Get(ctx, "1.2.3.4")

		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, int64(4), value)
		assert.Equal(t, int32(60), client.items[memcacheTestKey].Expiration)
	})

	t.Run("update expires the item at the end of the original window", func(t *testing.T) {
		clock := newTestClock()
		client := newMockMemcache()
		s := store.NewMemcacheCounterStore(client, time.Minute, store.WithClock(clock.Now))

		require.NoError(t, s.Update(ctx, "1.2.3.4", 1))

		clock.Advance(45 * time.Second)
		require.NoError(t, s.Update(ctx, "1.2.3.4", 2))

		assert.Equal(t, int32(15), client.items[memcacheTestKey].Expiration)
	})

	t.Run("window end is enforced on read", func(t *testing.T) {
		clock := newTestClock()
		client := newMockMemcache()
		s := store.NewMemcacheCounterStore(client, time.Minute, store.WithClock(clock.Now))

		require.NoError(t, s.Update(ctx, "1.2.3.4", 3))

		clock.Advance(time.Minute)

		_, found, err := s.Get(ctx, "1.2.3.4")

		require.NoError(t, err)
		assert.False(t, found)
		assert.Empty(t, client.items, "stale item should be deleted")
	})

	t.Run("update after the window starts a new one", func(t *testing.T) {
		clock := newTestClock()
		client := newMockMemcache()
		s := store.NewMemcacheCounterStore(client, time.Minute, store.WithClock(clock.Now))

		require.NoError(t, s.Update(ctx, "1.2.3.4", 3))

		clock.Advance(90 * time.Second)
		require.NoError(t, s.Update(ctx, "1.2.3.4", 1))

		assert.Equal(t, int32(60), client.items[memcacheTestKey].Expiration)
	})

	t.Run("long windows use absolute expiration", func(t *testing.T) {
		clock := newTestClock()
		client := newMockMemcache()
		window := 40 * 24 * time.Hour
		s := store.NewMemcacheCounterStore(client, window, store.WithClock(clock.Now))

		require.NoError(t, s.Update(ctx, "1.2.3.4", 1))

		assert.Equal(t, int32(clock.Now().Add(window).Unix()), client.items[memcacheTestKey].Expiration)
	})

	t.Run("del is idempotent", func(t *testing.T) {
		client := newMockMemcache()
		s := store.NewMemcacheCounterStore(client, time.Minute)

		_ = s.Update(ctx, "1.2.3.4", 1)

		require.NoError(t, s.Del(ctx, "1.2.3.4"))
		require.NoError(t, s.Del(ctx, "1.2.3.4"))

		_, found, _ := s.Get(ctx, "1.2.3.4")
		assert.False(t, found)
	})

	t.Run("uses the configured key prefix", func(t *testing.T) {
		client := newMockMemcache()
		s := store.NewMemcacheCounterStore(client, time.Minute, store.WithKeyPrefix("api:"))

		_ = s.Update(ctx, "1.2.3.4", 1)

		assert.Contains(t, client.items, "api:1.2.3.4")
	})
}

func TestMemcacheCounterStore_Errors(t *testing.T) {
	ctx := context.Background()
	backendErr := errors.New("connection refused")

	t.Run("get failure", func(t *testing.T) {
		client := newMockMemcache()
		client.getErr = backendErr
		s := store.NewMemcacheCounterStore(client, time.Minute)

		_, _, err := s.Get(ctx, "1.2.3.4")

		var storeErr *ratelimit.StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.Equal(t, "get", storeErr.Op)
		assert.ErrorIs(t, err, backendErr)
	})

	t.Run("set failure", func(t *testing.T) {
		client := newMockMemcache()
		client.setErr = backendErr
		s := store.NewMemcacheCounterStore(client, time.Minute)

		err := s.Update(ctx, "1.2.3.4", 1)

		var storeErr *ratelimit.StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.Equal(t, "update", storeErr.Op)
	})

	t.Run("delete failure", func(t *testing.T) {
		client := newMockMemcache()
		client.delErr = backendErr
		s := store.NewMemcacheCounterStore(client, time.Minute)

		var storeErr *ratelimit.StoreError
		require.ErrorAs(t, s.Del(ctx, "1.2.3.4"), &storeErr)
		assert.Equal(t, "del", storeErr.Op)
	})

	t.Run("failed cleanup of an expired item is a get failure", func(t *testing.T) {
		clock := newTestClock()
		client := newMockMemcache()
		s := store.NewMemcacheCounterStore(client, time.Minute, store.WithClock(clock.Now))

		require.NoError(t, s.Update(ctx, "1.2.3.4", 3))

		clock.Advance(time.Minute)
		client.delErr = backendErr

		_, found, err := s.Get(ctx, "1.2.3.4")

		assert.False(t, found)

		var storeErr *ratelimit.StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.Equal(t, "get", storeErr.Op)
		assert.ErrorIs(t, err, backendErr)
	})

	t.Run("malformed item", func(t *testing.T) {
		client := newMockMemcache()
		client.items[memcacheTestKey] = &memcache.Item{Key: memcacheTestKey, Value: []byte("garbage")}
		s := store.NewMemcacheCounterStore(client, time.Minute)

		_, _, err := s.Get(ctx, "1.2.3.4")

		var storeErr *ratelimit.StoreError
		assert.ErrorAs(t, err, &storeErr)
	})
}
