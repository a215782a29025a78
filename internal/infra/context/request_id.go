package context

import (
	"context"
)

type contextKey string

const contextKeyRequestID = contextKey("requestID")

// RequestIDFromContext extracts the request ID from the context.
// Returns the request ID and true if present, or empty string and false if not present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	requestID, ok := ctx.Value(contextKeyRequestID).(string)

	return requestID, ok && requestID != ""
}

// WithRequestID creates a new context carrying the given request ID.
// All HTTP attempts made with this context share the ID, so the attempts of
// one fallback chain can be correlated in client and server logs.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}
