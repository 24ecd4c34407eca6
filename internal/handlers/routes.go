package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/serroba/ip-rate-limiter/internal/ratelimit"
)

// RegisterRoutes registers the greeting and the limits admin routes.
// Only the greeting is rate limited.
func RegisterRoutes(api huma.API, limitsHandler *LimitsHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "hello",
		Method:      http.MethodGet,
		Path:        "/",
		Summary:     "Hello",
		Description: "Returns a greeting. Counted against the caller's rate limit.",
		Tags:        []string{"Hello"},
	}, Hello)

	huma.Register(api, huma.Operation{
		OperationID: "get-limit",
		Method:      http.MethodGet,
		Path:        "/limits/{key}",
		Summary:     "Get limit usage",
		Description: "Returns the requests counted for a client key in the current window.",
		Tags:        []string{"Limits"},
		Metadata:    ratelimit.Unlimited(),
	}, limitsHandler.GetLimit)

	huma.Register(api, huma.Operation{
		OperationID:   "reset-limit",
		Method:        http.MethodDelete,
		Path:          "/limits/{key}",
		Summary:       "Reset limit",
		Description:   "Clears the counter of a client key.",
		Tags:          []string{"Limits"},
		DefaultStatus: http.StatusNoContent,
		Metadata:      ratelimit.Unlimited(),
	}, limitsHandler.ResetLimit)
}
