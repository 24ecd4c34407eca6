package store

import (
	"context"
	"sync"
	"time"

	"github.com/serroba/ip-rate-limiter/internal/ratelimit"
)

type counter struct {
	value       int64
	windowStart time.Time
}

// MemoryCounterStore is an in-process implementation of ratelimit.Store.
// Expired records are removed lazily when they are read.
type MemoryCounterStore struct {
	mu       sync.RWMutex
	counters map[string]counter
	window   time.Duration
	now      func() time.Time
}

// NewMemoryCounterStore creates a new in-memory counter store.
func NewMemoryCounterStore(window time.Duration, opts ...Option) *MemoryCounterStore {
	return &MemoryCounterStore{
		counters: make(map[string]counter),
		window:   window,
		now:      newConfig(opts).now,
	}
}

func (s *MemoryCounterStore) Get(_ context.Context, key string) (int64, bool, error) {
	s.mu.RLock()
	c, ok := s.counters[key]
	s.mu.RUnlock()

	if !ok {
		return 0, false, nil
	}

	if !s.expired(c) {
		return c.value, true, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another request may have replaced the record since it was read.
	if current, ok := s.counters[key]; ok && s.expired(current) {
		delete(s.counters, key)
	}

	return 0, false, nil
}

func (s *MemoryCounterStore) Update(_ context.Context, key string, value int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// An expired record is logically absent, so it starts a new window too.
	c, ok := s.counters[key]
	if !ok || s.expired(c) {
		c = counter{windowStart: s.now()}
	}

	c.value = value
	s.counters[key] = c

	return nil
}

func (s *MemoryCounterStore) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.counters, key)

	return nil
}

// Len returns the number of records currently held, expired or not.
func (s *MemoryCounterStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.counters)
}

func (s *MemoryCounterStore) expired(c counter) bool {
	return !s.now().Before(c.windowStart.Add(s.window))
}

// Compile-time check.
var _ ratelimit.Store = (*MemoryCounterStore)(nil)
