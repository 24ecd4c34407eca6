package ratelimit

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidOptions is returned when limiter options fail validation.
var ErrInvalidOptions = errors.New("invalid rate limit options")

// FailurePolicy decides what happens to a request when the store fails.
type FailurePolicy string

const (
	// FailClosed answers the request with a server error.
	FailClosed FailurePolicy = "closed"
	// FailOpen admits the request without counting it.
	FailOpen FailurePolicy = "open"
)

// Options configures a Limiter. Options are fixed for the lifetime of the limiter.
type Options struct {
	// Max is the number of requests admitted per window.
	Max int64 `validate:"gt=0"`

	// WindowSeconds is the window length in seconds.
	WindowSeconds int64 `validate:"gt=0"`

	// WindowUnit is appended to the rejection message when set, e.g. "seconds".
	WindowUnit string

	// OnStoreError defaults to FailClosed when empty.
	OnStoreError FailurePolicy `validate:"omitempty,oneof=closed open"`
}

var validate = validator.New()

// Validate checks that Max and WindowSeconds are positive and the failure policy is known.
func (o Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}

	return nil
}

// Window returns WindowSeconds as a duration.
func (o Options) Window() time.Duration {
	return time.Duration(o.WindowSeconds) * time.Second
}

// FailurePolicy returns the configured policy, FailClosed when unset.
func (o Options) FailurePolicy() FailurePolicy {
	if o.OnStoreError == "" {
		return FailClosed
	}

	return o.OnStoreError
}

// RejectionMessage is the body sent with a 429 response, e.g. "10 max requests per 60".
func (o Options) RejectionMessage() string {
	msg := fmt.Sprintf("%d max requests per %d", o.Max, o.WindowSeconds)
	if o.WindowUnit != "" {
		msg += " " + o.WindowUnit
	}

	return msg
}
