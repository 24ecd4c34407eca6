package health

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/redis/go-redis/v9"
	"github.com/serroba/ip-rate-limiter/internal/ratelimit"
)

// Checker defines the interface for checking the counter store backend.
type Checker interface {
	Ping(ctx context.Context) error
}

// RedisChecker adapts a Redis client to Checker.
type RedisChecker struct {
	client redis.Cmdable
}

// NewRedisChecker creates a new Redis health checker.
func NewRedisChecker(client redis.Cmdable) *RedisChecker {
	return &RedisChecker{client: client}
}

// Ping checks Redis connectivity.
func (r *RedisChecker) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// MemcachePinger is satisfied by *memcache.Client.
type MemcachePinger interface {
	Ping() error
}

// MemcacheChecker adapts a memcached client to Checker.
type MemcacheChecker struct {
	client MemcachePinger
}

// NewMemcacheChecker creates a new memcached health checker.
func NewMemcacheChecker(client MemcachePinger) *MemcacheChecker {
	return &MemcacheChecker{client: client}
}

// Ping checks memcached connectivity. The client has no context support, so
// ctx is only checked before the call.
func (m *MemcacheChecker) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return m.client.Ping()
}

// MemoryChecker reports the in-process store, which is always available.
type MemoryChecker struct{}

func (MemoryChecker) Ping(context.Context) error { return nil }

// Handler handles health check operations.
type Handler struct {
	store Checker
}

// NewHandler creates a new health handler.
func NewHandler(store Checker) *Handler {
	return &Handler{store: store}
}

// Response is the response for health check endpoint.
type Response struct {
	Body struct {
		Status string `json:"status" doc:"ok, or degraded when the store is unreachable"`
		Store  string `json:"store"  doc:"healthy or unhealthy"`
	}
}

// Check performs a health check of the application and its counter store.
func (h *Handler) Check(ctx context.Context, _ *struct{}) (*Response, error) {
	resp := &Response{}
	resp.Body.Status = "ok"

	if err := h.store.Ping(ctx); err != nil {
		resp.Body.Store = "unhealthy"
		resp.Body.Status = "degraded"
	} else {
		resp.Body.Store = "healthy"
	}

	return resp, nil
}

// RegisterRoutes registers health check routes. Health checks are not rate limited.
func RegisterRoutes(api huma.API, h *Handler) {
	huma.Register(api, huma.Operation{
		OperationID: "health-check",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Tags:        []string{"Health"},
		Metadata:    ratelimit.Unlimited(),
	}, h.Check)
}
