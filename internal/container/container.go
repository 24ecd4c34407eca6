package container

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/serroba/ip-rate-limiter/internal/middleware"
	"github.com/serroba/ip-rate-limiter/internal/ratelimit"
)

// Counter store backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendMemcache = "memcache"
)

// Options is the service configuration. Flags and SERVICE_* environment
// variables are derived from the struct tags by humacli.
type Options struct {
	Port         int    `default:"8888"            help:"Port to listen on"                                 short:"p" validate:"gt=0,lte=65535"`
	Backend      string `default:"memory"          help:"Counter store backend: memory, redis or memcache" short:"b" validate:"oneof=memory redis memcache"`
	RedisAddr    string `default:"localhost:6379"  help:"Redis server address"                              short:"r"`
	MemcacheAddr string `default:"localhost:11211" help:"Memcached server address"`
	KeyPrefix    string `default:"ratelimit:"      help:"Prefix of counter keys in networked stores"`
	Max          int    `default:"10"              help:"Requests admitted per client per window"           short:"m" validate:"gt=0"`
	Window       int    `default:"60"              help:"Window length in seconds"                          short:"w" validate:"gt=0"`
	WindowUnit   string `default:""                help:"Unit appended to the rejection message, e.g. seconds"`
	FailOpen     bool   `default:"false"           help:"Admit requests when the counter store is unavailable"`
	Headers      bool   `default:"true"            help:"Send x-rate-limit-* headers on admitted responses"`
	TrustProxy   bool   `default:"false"           help:"Key clients by X-Forwarded-For / X-Real-IP instead of the remote address"`
	Events       bool   `default:"false"           help:"Publish limit exceeded events to a Redis stream"`
	DatabaseURL  string `default:""                help:"PostgreSQL URL for persisting limit exceeded events"`
	LogFormat    string `default:"console"         help:"Log format: console or json"                                 validate:"oneof=console json"`
	LogLevel     string `default:"info"            help:"Log level: debug, info, warn or error"                       validate:"oneof=debug info warn error"`
	LogFile      string `default:""                help:"Also write JSON logs to this file, rotated by size"`
}

var validate = validator.New()

// Validate checks option values that flags alone cannot constrain.
func (o *Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}

	return nil
}

// WindowDuration returns Window as a duration.
func (o *Options) WindowDuration() time.Duration {
	return time.Duration(o.Window) * time.Second
}

// KeyFunc returns the client key derivation: proxy headers are only honored
// with TrustProxy.
func (o *Options) KeyFunc() middleware.KeyFunc {
	if o.TrustProxy {
		return middleware.ClientIP
	}

	return middleware.RemoteIP
}

// LimiterOptions maps the service configuration onto the limiter.
func (o *Options) LimiterOptions() ratelimit.Options {
	policy := ratelimit.FailClosed
	if o.FailOpen {
		policy = ratelimit.FailOpen
	}

	return ratelimit.Options{
		Max:           int64(o.Max),
		WindowSeconds: int64(o.Window),
		WindowUnit:    o.WindowUnit,
		OnStoreError:  policy,
	}
}
