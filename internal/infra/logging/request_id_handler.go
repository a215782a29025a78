package logging

import (
	"context"
	"log/slog"

	context_ "github.com/mkrupp/voicechat/internal/infra/context"
)

// RequestIDHandler wraps another slog.Handler and adds the request ID and the
// client operation found in the context to every record.
type RequestIDHandler struct {
	h slog.Handler
}

var _ slog.Handler = (*RequestIDHandler)(nil)

// NewRequestIDHandler creates a new RequestIDHandler wrapping the given handler.
func NewRequestIDHandler(h slog.Handler) *RequestIDHandler {
	return &RequestIDHandler{h: h}
}

// Handle implements slog.Handler.
func (h *RequestIDHandler) Handle(ctx context.Context, r slog.Record) error {
	var attrs []any

	if requestID, ok := context_.RequestIDFromContext(ctx); ok {
		attrs = append(attrs, slog.String("id", requestID))
	}

	if op, ok := context_.OperationFromContext(ctx); ok {
		attrs = append(attrs, slog.String("op", op))
	}

	if len(attrs) > 0 {
		r.AddAttrs(slog.Group("request", attrs...))
	}

	//nolint:wrapcheck
	return h.h.Handle(ctx, r)
}

// WithAttrs implements slog.Handler.WithAttrs.
func (h *RequestIDHandler) WithAttrs(attrs []slog.Attr) Handler {
	return NewRequestIDHandler(h.h.WithAttrs(attrs))
}

// WithGroup implements slog.Handler.WithGroup.
func (h *RequestIDHandler) WithGroup(name string) Handler {
	return NewRequestIDHandler(h.h.WithGroup(name))
}

// Enabled implements slog.Handler.Enabled.
func (h *RequestIDHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.h.Enabled(ctx, level)
}
