package store

import (
	"context"

	"github.com/serroba/ip-rate-limiter/internal/events"
	"go.uber.org/zap"
)

// LogEventStore is an events.Store that only logs what it receives.
// Used by the consumer when no database is configured.
type LogEventStore struct {
	logger *zap.Logger
}

// NewLogEventStore creates a new logging event store.
func NewLogEventStore(logger *zap.Logger) *LogEventStore {
	return &LogEventStore{logger: logger}
}

func (l *LogEventStore) SaveLimitExceeded(_ context.Context, event *events.LimitExceededEvent) error {
	l.logger.Info("limit exceeded event received",
		zap.String("key", event.Key),
		zap.Int64("count", event.Count),
		zap.Int64("max", event.Max),
		zap.Int64("windowSeconds", event.WindowSeconds),
		zap.String("method", event.Method),
		zap.String("path", event.Path),
		zap.String("requestId", event.RequestID),
		zap.Time("occurredAt", event.OccurredAt),
	)

	return nil
}

// Compile-time check.
var _ events.Store = (*LogEventStore)(nil)
