package container

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/jaevor/go-nanoid"
	"github.com/samber/do"
	"github.com/serroba/ip-rate-limiter/internal/events"
	"github.com/serroba/ip-rate-limiter/internal/handlers"
	"github.com/serroba/ip-rate-limiter/internal/health"
	"github.com/serroba/ip-rate-limiter/internal/metrics"
	"github.com/serroba/ip-rate-limiter/internal/middleware"
	"github.com/serroba/ip-rate-limiter/internal/ratelimit"
	"go.uber.org/zap"
)

// requestIDLength matches the nanoid default.
const requestIDLength = 21

// MetricsPackage provides the *metrics.Metrics.
func MetricsPackage(injector *do.Injector) {
	do.Provide(injector, func(_ *do.Injector) (*metrics.Metrics, error) {
		return metrics.New(), nil
	})
}

// HTTPPackage provides the *chi.Mux and the huma.API with middleware and
// routes registered. /metrics is served by chi outside the API.
func HTTPPackage(injector *do.Injector) {
	do.Provide(injector, func(_ *do.Injector) (*chi.Mux, error) {
		return chi.NewMux(), nil
	})

	do.Provide(injector, func(i *do.Injector) (huma.API, error) {
		router := do.MustInvoke[*chi.Mux](i)
		options := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		limiter := do.MustInvoke[*ratelimit.Limiter](i)
		m := do.MustInvoke[*metrics.Metrics](i)
		publish := do.MustInvoke[events.Publish](i)
		checker := do.MustInvoke[health.Checker](i)

		requestID, err := nanoid.Standard(requestIDLength)
		if err != nil {
			return nil, err
		}

		api := humachi.New(router, huma.DefaultConfig("IP Rate Limiter", "1.0.0"))

		// Middleware must be registered before the routes it applies to.
		api.UseMiddleware(middleware.RequestMeta(requestID))
		api.UseMiddleware(middleware.NewRateLimit(limiter, logger,
			middleware.WithMetrics(m),
			middleware.WithPublisher(publish),
			middleware.WithHeaders(options.Headers),
			middleware.WithKeyFunc(options.KeyFunc()),
		).Huma(api))

		handlers.RegisterRoutes(api, handlers.NewLimitsHandler(limiter, logger))
		health.RegisterRoutes(api, health.NewHandler(checker))

		router.Handle("/metrics", m.Handler())

		return api, nil
	})
}

// RegisterServer registers every package cmd/server needs.
func RegisterServer(injector *do.Injector, options *Options) {
	do.ProvideValue(injector, options)
	LoggerPackage(injector)
	RedisPackage(injector)
	MemcachePackage(injector)
	CounterStorePackage(injector)
	RateLimitPackage(injector)
	MetricsPackage(injector)
	EventsPackage(injector)
	HTTPPackage(injector)
}

// RegisterConsumer registers every package cmd/consumer needs.
func RegisterConsumer(injector *do.Injector, options *Options) {
	do.ProvideValue(injector, options)
	LoggerPackage(injector)
	RedisPackage(injector)
	PostgresPackage(injector)
	EventStorePackage(injector)
	ConsumerPackage(injector)
}
