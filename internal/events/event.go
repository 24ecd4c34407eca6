package events

import "time"

// TopicLimitExceeded is the topic rejected requests are published to.
const TopicLimitExceeded = "ratelimit.exceeded"

// LimitExceededEvent represents a request rejected by the rate limiter.
type LimitExceededEvent struct {
	Key           string    `json:"key"`
	Count         int64     `json:"count"`
	Max           int64     `json:"max"`
	WindowSeconds int64     `json:"windowSeconds"`
	Method        string    `json:"method"`
	Path          string    `json:"path"`
	RequestID     string    `json:"requestId,omitempty"`
	UserAgent     string    `json:"userAgent,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}
