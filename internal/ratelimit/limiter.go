package ratelimit

import (
	"context"
)

// Decision is the outcome of a single admission check.
type Decision struct {
	Allowed       bool
	Current       int64
	Max           int64
	WindowSeconds int64
}

// Limiter admits or rejects requests per key using a fixed quota per window.
type Limiter struct {
	store   Store
	options Options
}

// New creates a limiter backed by store.
func New(store Store, options Options) (*Limiter, error) {
	if err := options.Validate(); err != nil {
		return nil, err
	}

	return &Limiter{
		store:   store,
		options: options,
	}, nil
}

// Check counts a request for key and reports whether it is admitted.
//
// The read and the write are two separate store calls, so concurrent requests
// for the same key may read the same value and undercount.
// TODO: add an optional Incrementer store capability (Redis INCR + EXPIRE NX)
// for exact quotas under load.
func (l *Limiter) Check(ctx context.Context, key string) (Decision, error) {
	current, found, err := l.store.Get(ctx, key)
	if err != nil {
		return Decision{}, asStoreError("get", key, err)
	}

	if !found {
		current = 0
	}

	latest := current + 1

	// Rejected requests count against the quota too.
	if err := l.store.Update(ctx, key, latest); err != nil {
		return Decision{}, asStoreError("update", key, err)
	}

	return Decision{
		Allowed:       latest <= l.options.Max,
		Current:       latest,
		Max:           l.options.Max,
		WindowSeconds: l.options.WindowSeconds,
	}, nil
}

// Current returns the counter for key without counting a request.
func (l *Limiter) Current(ctx context.Context, key string) (int64, error) {
	value, found, err := l.store.Get(ctx, key)
	if err != nil {
		return 0, asStoreError("get", key, err)
	}

	if !found {
		return 0, nil
	}

	return value, nil
}

// Reset clears the counter for key.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	if err := l.store.Del(ctx, key); err != nil {
		return asStoreError("del", key, err)
	}

	return nil
}

// Options returns the limiter configuration.
func (l *Limiter) Options() Options {
	return l.options
}
