package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/ip-rate-limiter/internal/events"
	"github.com/serroba/ip-rate-limiter/internal/metrics"
	"github.com/serroba/ip-rate-limiter/internal/ratelimit"
	"go.uber.org/zap"
)

// Response headers set on admitted requests.
const (
	HeaderCurrent = "x-rate-limit-current"
	HeaderMax     = "x-rate-limit-max"
)

const contentTypeText = "text/plain; charset=utf-8"

// Limiter is the admission check used by RateLimit.
type Limiter interface {
	Check(ctx context.Context, key string) (ratelimit.Decision, error)
	Options() ratelimit.Options
}

// Option configures a RateLimit middleware.
type Option func(*RateLimit)

// WithMetrics records every decision in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(rl *RateLimit) { rl.metrics = m }
}

// WithPublisher publishes a LimitExceededEvent for every rejected request.
func WithPublisher(publish events.Publish) Option {
	return func(rl *RateLimit) { rl.publish = publish }
}

// WithHeaders toggles the quota headers on admitted responses. Enabled by default.
func WithHeaders(enabled bool) Option {
	return func(rl *RateLimit) { rl.headers = enabled }
}

// WithKeyFunc replaces ClientIP as the key derivation.
func WithKeyFunc(fn KeyFunc) Option {
	return func(rl *RateLimit) { rl.keyFunc = fn }
}

// RateLimit admits or rejects requests by client key before they reach the handler.
type RateLimit struct {
	limiter Limiter
	logger  *zap.Logger
	metrics *metrics.Metrics
	publish events.Publish
	keyFunc KeyFunc
	headers bool
	policy  ratelimit.FailurePolicy
	message string
	now     func() time.Time
}

// NewRateLimit creates a rate limit middleware around limiter.
func NewRateLimit(limiter Limiter, logger *zap.Logger, opts ...Option) *RateLimit {
	options := limiter.Options()

	rl := &RateLimit{
		limiter: limiter,
		logger:  logger,
		publish: events.NopPublish,
		keyFunc: ClientIP,
		headers: true,
		policy:  options.FailurePolicy(),
		message: options.RejectionMessage(),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(rl)
	}

	return rl
}

type verdict int

const (
	verdictAdmit verdict = iota
	verdictReject
	verdictFail
	// verdictPass forwards without quota headers after a store failure under FailOpen.
	verdictPass
)

type request struct {
	ctx       context.Context
	key       string
	method    string
	path      string
	userAgent string
}

// Huma returns the middleware for a Huma API. Operations marked with
// ratelimit.Unlimited metadata are not counted.
func (rl *RateLimit) Huma(api huma.API) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		if cfg := ratelimit.GetEndpointConfig(ctx); cfg != nil && cfg.Disabled {
			next(ctx)

			return
		}

		u := ctx.URL()

		decision, v := rl.evaluate(request{
			ctx:       ctx.Context(),
			key:       rl.keyFunc(ctx.Header, ctx.RemoteAddr()),
			method:    ctx.Method(),
			path:      u.Path,
			userAgent: ctx.Header("User-Agent"),
		})

		switch v {
		case verdictFail:
			_ = huma.WriteErr(api, ctx, http.StatusInternalServerError, "internal server error")
		case verdictReject:
			ctx.SetHeader("Content-Type", contentTypeText)
			ctx.SetStatus(http.StatusTooManyRequests)
			_, _ = ctx.BodyWriter().Write([]byte(rl.message))
		case verdictAdmit:
			rl.setHeaders(ctx.SetHeader, decision)
			next(ctx)
		case verdictPass:
			next(ctx)
		}
	}
}

// Handler wraps a plain net/http handler.
func (rl *RateLimit) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decision, v := rl.evaluate(request{
			ctx:       r.Context(),
			key:       rl.keyFunc(r.Header.Get, r.RemoteAddr),
			method:    r.Method,
			path:      r.URL.Path,
			userAgent: r.UserAgent(),
		})

		switch v {
		case verdictFail:
			http.Error(w, "internal server error", http.StatusInternalServerError)
		case verdictReject:
			w.Header().Set("Content-Type", contentTypeText)
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(rl.message))
		case verdictAdmit:
			rl.setHeaders(w.Header().Set, decision)
			next.ServeHTTP(w, r)
		case verdictPass:
			next.ServeHTTP(w, r)
		}
	})
}

func (rl *RateLimit) evaluate(req request) (ratelimit.Decision, verdict) {
	decision, err := rl.limiter.Check(req.ctx, req.key)
	if err != nil {
		rl.record(metrics.OutcomeError)

		if rl.policy == ratelimit.FailOpen {
			rl.logger.Warn("rate limit check failed, admitting request",
				zap.String("key", req.key),
				zap.String("path", req.path),
				zap.Error(err),
			)

			return ratelimit.Decision{}, verdictPass
		}

		rl.logger.Error("rate limit check failed",
			zap.String("key", req.key),
			zap.String("path", req.path),
			zap.Error(err),
		)

		return ratelimit.Decision{}, verdictFail
	}

	if !decision.Allowed {
		rl.record(metrics.OutcomeRejected)
		rl.logger.Warn("rate limit exceeded",
			zap.String("key", req.key),
			zap.String("method", req.method),
			zap.String("path", req.path),
			zap.Int64("count", decision.Current),
			zap.Int64("max", decision.Max),
		)
		rl.publishRejection(req, decision)

		return decision, verdictReject
	}

	rl.record(metrics.OutcomeAdmitted)

	return decision, verdictAdmit
}

func (rl *RateLimit) publishRejection(req request, decision ratelimit.Decision) {
	event := &events.LimitExceededEvent{
		Key:           req.key,
		Count:         decision.Current,
		Max:           decision.Max,
		WindowSeconds: decision.WindowSeconds,
		Method:        req.method,
		Path:          req.path,
		RequestID:     MetaFromContext(req.ctx).RequestID,
		UserAgent:     req.userAgent,
		OccurredAt:    rl.now().UTC(),
	}

	if err := rl.publish(event); err != nil {
		rl.logger.Error("failed to publish limit exceeded event",
			zap.String("key", req.key),
			zap.Error(err),
		)

		if rl.metrics != nil {
			rl.metrics.RecordEventFailure()
		}
	}
}

func (rl *RateLimit) setHeaders(set func(name, value string), decision ratelimit.Decision) {
	if !rl.headers {
		return
	}

	set(HeaderCurrent, strconv.FormatInt(decision.Current, 10))
	set(HeaderMax, strconv.FormatInt(decision.Max, 10))
}

func (rl *RateLimit) record(outcome metrics.Outcome) {
	if rl.metrics != nil {
		rl.metrics.RecordDecision(outcome)
	}
}
