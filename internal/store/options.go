package store

import "time"

// DefaultKeyPrefix namespaces counters in shared backends.
const DefaultKeyPrefix = "ratelimit:"

type config struct {
	now    func() time.Time
	prefix string
}

// Option configures a counter store.
type Option func(*config)

// WithClock sets the time source used for window bookkeeping.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		c.now = now
	}
}

// WithKeyPrefix sets the prefix prepended to keys in shared backends.
func WithKeyPrefix(prefix string) Option {
	return func(c *config) {
		c.prefix = prefix
	}
}

func newConfig(opts []Option) config {
	c := config{
		now:    time.Now,
		prefix: DefaultKeyPrefix,
	}

	for _, opt := range opts {
		opt(&c)
	}

	return c
}
