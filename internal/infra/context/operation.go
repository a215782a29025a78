package context

import (
	"context"
)

const contextKeyOperation = contextKey("operation")

// OperationFromContext extracts the name of the client operation from the context.
func OperationFromContext(ctx context.Context) (string, bool) {
	op, ok := ctx.Value(contextKeyOperation).(string)

	return op, ok
}

// WithOperation creates a new context carrying the name of the client operation.
func WithOperation(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, contextKeyOperation, op)
}
