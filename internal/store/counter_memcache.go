package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/serroba/ip-rate-limiter/internal/ratelimit"
)

// memcache treats expirations above 30 days as absolute unix timestamps.
const maxRelativeExpiration = 30 * 24 * time.Hour

// MemcacheClient is the subset of *memcache.Client used by MemcacheCounterStore.
type MemcacheClient interface {
	Get(key string) (*memcache.Item, error)
	Set(item *memcache.Item) error
	Delete(key string) error
}

// MemcacheCounterStore is a memcached implementation of ratelimit.Store.
//
// memcached cannot overwrite a value while keeping its expiry, so each item
// stores "<count>:<window start unix milliseconds>" and every write sets the
// expiration to the time left in the window.
type MemcacheCounterStore struct {
	client MemcacheClient
	prefix string
	window time.Duration
	now    func() time.Time
}

// NewMemcacheCounterStore creates a new memcached-backed counter store.
func NewMemcacheCounterStore(client MemcacheClient, window time.Duration, opts ...Option) *MemcacheCounterStore {
	cfg := newConfig(opts)

	return &MemcacheCounterStore{
		client: client,
		prefix: cfg.prefix,
		window: window,
		now:    cfg.now,
	}
}

func (m *MemcacheCounterStore) Get(_ context.Context, key string) (int64, bool, error) {
	value, start, found, err := m.read(key)
	if err != nil {
		return 0, false, ratelimit.NewStoreError("get", key, err)
	}

	if !found {
		return 0, false, nil
	}

	if m.remaining(start) > 0 {
		return value, true, nil
	}

	// The item outlived its window by less than a second of expiry rounding.
	if err := m.delete(key); err != nil {
		return 0, false, ratelimit.NewStoreError("get", key, err)
	}

	return 0, false, nil
}

func (m *MemcacheCounterStore) Update(_ context.Context, key string, value int64) error {
	_, start, found, err := m.read(key)
	if err != nil {
		return ratelimit.NewStoreError("update", key, err)
	}

	if !found || m.remaining(start) <= 0 {
		start = m.now()
	}

	item := &memcache.Item{
		Key:        m.prefix + key,
		Value:      []byte(encodeCounter(value, start)),
		Expiration: m.expiration(start),
	}

	if err := m.client.Set(item); err != nil {
		return ratelimit.NewStoreError("update", key, err)
	}

	return nil
}

func (m *MemcacheCounterStore) Del(_ context.Context, key string) error {
	if err := m.delete(key); err != nil {
		return ratelimit.NewStoreError("del", key, err)
	}

	return nil
}

func (m *MemcacheCounterStore) read(key string) (value int64, start time.Time, found bool, err error) {
	item, err := m.client.Get(m.prefix + key)
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return 0, time.Time{}, false, nil
		}

		return 0, time.Time{}, false, err
	}

	value, start, err = decodeCounter(item.Value)
	if err != nil {
		return 0, time.Time{}, false, err
	}

	return value, start, true, nil
}

func (m *MemcacheCounterStore) delete(key string) error {
	err := m.client.Delete(m.prefix + key)
	if err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		return err
	}

	return nil
}

func (m *MemcacheCounterStore) remaining(start time.Time) time.Duration {
	return start.Add(m.window).Sub(m.now())
}

// expiration converts the rest of the window into memcached expiration seconds,
// rounded up so an item never expires before its window ends.
func (m *MemcacheCounterStore) expiration(start time.Time) int32 {
	if m.window > maxRelativeExpiration {
		return int32(start.Add(m.window).Unix())
	}

	seconds := int32((m.remaining(start) + time.Second - 1) / time.Second)
	if seconds < 1 {
		seconds = 1
	}

	return seconds
}

func encodeCounter(value int64, start time.Time) string {
	return strconv.FormatInt(value, 10) + ":" + strconv.FormatInt(start.UnixMilli(), 10)
}

func decodeCounter(raw []byte) (int64, time.Time, error) {
	countPart, startPart, ok := strings.Cut(string(raw), ":")
	if !ok {
		return 0, time.Time{}, fmt.Errorf("malformed counter %q", raw)
	}

	value, err := strconv.ParseInt(countPart, 10, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("malformed counter value %q: %w", countPart, err)
	}

	millis, err := strconv.ParseInt(startPart, 10, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("malformed window start %q: %w", startPart, err)
	}

	return value, time.UnixMilli(millis), nil
}

// Compile-time check.
var _ ratelimit.Store = (*MemcacheCounterStore)(nil)
