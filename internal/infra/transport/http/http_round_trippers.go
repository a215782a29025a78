package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/google/uuid"

	context_ "github.com/mkrupp/voicechat/internal/infra/context"
	"github.com/mkrupp/voicechat/internal/infra/logging"
)

// ErrPanic is returned by RescueingRoundTripper when the wrapped transport panics.
var ErrPanic = errors.New("transport panic")

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

// RoundTrip implements http.RoundTripper.
func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// NewRequestID returns a new time-ordered request ID.
func NewRequestID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return id.String()
}

// TracingRoundTripper sets the X-Request-ID header. The ID is taken from the
// request context if present, otherwise a new UUIDv7 is generated.
func TracingRoundTripper(next http.RoundTripper) http.RoundTripper {
	return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		if r.Header.Get(RequestIDHeader) != "" {
			return next.RoundTrip(r) //nolint:wrapcheck
		}

		requestID, ok := context_.RequestIDFromContext(r.Context())
		if !ok {
			requestID = NewRequestID()
		}

		r = r.Clone(r.Context())
		r.Header.Set(RequestIDHeader, requestID)

		return next.RoundTrip(r) //nolint:wrapcheck
	})
}

// LoggingRoundTripper logs every round trip. Responses are logged at a level
// determined by the status code:
// - 5xx: WARN
// - 4xx: DEBUG
// - Other: DEBUG.
// Fallback chains expect 4xx responses, so they are not treated as warnings.
func LoggingRoundTripper(next http.RoundTripper, log logging.Logger) http.RoundTripper {
	return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		ctx := r.Context()

		resp, err := next.RoundTrip(r)
		if err != nil {
			log.DebugContext(ctx, "round trip failed", slog.Group("http",
				"url", r.URL.Redacted(),
				"method", r.Method,
			), "error", err)

			return nil, err //nolint:wrapcheck
		}

		level := logging.LevelDebug
		if resp.StatusCode >= http.StatusInternalServerError {
			level = logging.LevelWarn
		}

		log.Log(ctx, level, "response", slog.Group("http",
			"url", r.URL.Redacted(),
			"method", r.Method,
			"status", resp.StatusCode,
			"content_length", resp.ContentLength,
		))

		return resp, nil
	})
}

// RescueingRoundTripper recovers from panics in the wrapped transport and
// turns them into errors wrapping ErrPanic.
func RescueingRoundTripper(next http.RoundTripper, log logging.Logger) http.RoundTripper {
	return RoundTripperFunc(func(r *http.Request) (resp *http.Response, err error) {
		defer func() {
			if p := recover(); p != nil {
				log.ErrorContext(r.Context(), "round trip panic", slog.Group("http",
					"url", r.URL.Redacted(),
					"method", r.Method,
				), slog.Group("error",
					"panic", p,
					"stack", string(debug.Stack()),
				))

				resp, err = nil, fmt.Errorf("%w: %v", ErrPanic, p)
			}
		}()

		return next.RoundTrip(r) //nolint:wrapcheck
	})
}
