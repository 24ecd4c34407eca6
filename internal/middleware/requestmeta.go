package middleware

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLength bounds client supplied request IDs.
const maxRequestIDLength = 128

// IDGenerator returns a new unique request ID.
type IDGenerator func() string

// Meta holds HTTP request metadata attached to the request context.
type Meta struct {
	RequestID string
	ClientIP  string
	UserAgent string
	Referrer  string
}

type metaKey struct{}

// ContextWithMeta adds request metadata to ctx.
func ContextWithMeta(ctx context.Context, meta Meta) context.Context {
	return context.WithValue(ctx, metaKey{}, meta)
}

// MetaFromContext returns the request metadata stored in ctx, or the zero Meta.
func MetaFromContext(ctx context.Context) Meta {
	if v, ok := ctx.Value(metaKey{}).(Meta); ok {
		return v
	}

	return Meta{}
}

// RequestMeta is a middleware that adds the request ID, client IP, user-agent
// and referrer to the request context. A request ID sent by the client is kept,
// otherwise one is generated. The ID is echoed in the response headers.
func RequestMeta(generate IDGenerator) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		requestID := ctx.Header(RequestIDHeader)
		if requestID == "" || len(requestID) > maxRequestIDLength {
			requestID = generate()
		}

		meta := Meta{
			RequestID: requestID,
			ClientIP:  ClientIP(ctx.Header, ctx.RemoteAddr()),
			UserAgent: ctx.Header("User-Agent"),
			Referrer:  ctx.Header("Referer"),
		}

		ctx.SetHeader(RequestIDHeader, requestID)
		ctx = huma.WithContext(ctx, ContextWithMeta(ctx.Context(), meta))

		next(ctx)
	}
}
