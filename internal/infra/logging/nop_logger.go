package logging

import (
	"io"
	"log/slog"
)

// NewNopLogger creates a logger that discards all output.
// Useful for tests and for components constructed before Configure runs.
func NewNopLogger() Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: LevelError + 1}))
}
