package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/mkrupp/voicechat/internal/infra/logging"
)

// StatusRecorder wraps an http.ResponseWriter and records the status code
// and the number of body bytes written.
type StatusRecorder struct {
	http.ResponseWriter
	Status int
	Bytes  int

	wroteHeader bool
}

// NewStatusRecorder wraps w. Status is 200 until a header is written.
func NewStatusRecorder(w http.ResponseWriter) *StatusRecorder {
	return &StatusRecorder{
		ResponseWriter: w,
		Status:         http.StatusOK,
	}
}

func (w *StatusRecorder) WriteHeader(code int) {
	if !w.wroteHeader {
		w.Status = code
		w.wroteHeader = true
	}

	w.ResponseWriter.WriteHeader(code)
}

func (w *StatusRecorder) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}

	n, err := w.ResponseWriter.Write(b)
	w.Bytes += n

	if err != nil {
		return n, fmt.Errorf("write: %w", err)
	}

	return n, nil
}

// Written reports whether the header has been sent.
func (w *StatusRecorder) Written() bool {
	return w.wroteHeader
}

// Unwrap gives http.ResponseController access to the wrapped writer.
func (w *StatusRecorder) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// LoggingMiddleware logs every served request with its status, size and
// duration. 404 and 405 answers are expected while clients probe method
// variants and are logged at DEBUG, other 4xx at WARN and 5xx at ERROR.
func LoggingMiddleware(next http.Handler, log logging.Logger) http.Handler {
	//nolint:varnamelen
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := NewStatusRecorder(w)

		next.ServeHTTP(rec, r)

		log.Log(r.Context(), responseLevel(rec.Status), "served", logging.Group("http",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.Status,
			"bytes", rec.Bytes,
			"duration", time.Since(start),
		))
	})
}

func responseLevel(status int) logging.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return logging.LevelError
	case status == http.StatusNotFound, status == http.StatusMethodNotAllowed:
		return logging.LevelDebug
	case status >= http.StatusBadRequest:
		return logging.LevelWarn
	default:
		return logging.LevelInfo
	}
}
