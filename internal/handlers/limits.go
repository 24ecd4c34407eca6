package handlers

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/ip-rate-limiter/internal/ratelimit"
	"go.uber.org/zap"
)

// Limits reads and clears counters of the rate limiter.
type Limits interface {
	Current(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
	Options() ratelimit.Options
}

// LimitsHandler exposes counter inspection and reset.
type LimitsHandler struct {
	limits Limits
	logger *zap.Logger
}

// NewLimitsHandler creates a new limits handler.
func NewLimitsHandler(limits Limits, logger *zap.Logger) *LimitsHandler {
	return &LimitsHandler{limits: limits, logger: logger}
}

// GetLimit returns the usage of a key without counting a request.
func (h *LimitsHandler) GetLimit(ctx context.Context, req *LimitRequest) (*LimitResponse, error) {
	current, err := h.limits.Current(ctx, req.Key)
	if err != nil {
		h.logger.Error("failed to read counter", zap.String("key", req.Key), zap.Error(err))

		return nil, huma.Error500InternalServerError("internal server error")
	}

	options := h.limits.Options()

	resp := &LimitResponse{}
	resp.Body.Key = req.Key
	resp.Body.Current = current
	resp.Body.Max = options.Max
	resp.Body.WindowSeconds = options.WindowSeconds
	resp.Body.Remaining = max(options.Max-current, 0)

	return resp, nil
}

// ResetLimit clears the counter of a key.
func (h *LimitsHandler) ResetLimit(ctx context.Context, req *LimitRequest) (*struct{}, error) {
	if err := h.limits.Reset(ctx, req.Key); err != nil {
		h.logger.Error("failed to reset counter", zap.String("key", req.Key), zap.Error(err))

		return nil, huma.Error500InternalServerError("internal server error")
	}

	h.logger.Info("counter reset", zap.String("key", req.Key))

	return nil, nil
}
