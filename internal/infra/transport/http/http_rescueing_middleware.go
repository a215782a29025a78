package http

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/mkrupp/voicechat/internal/infra/logging"
)

// RescueingMiddleware turns a handler panic into a plain-text 500 response.
// Nothing is written when the handler already sent its header.
// http.ErrAbortHandler is passed on to net/http untouched.
func RescueingMiddleware(next http.Handler, log logging.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			p := recover()
			if p == nil {
				return
			}

			if err, ok := p.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(p)
			}

			log.ErrorContext(r.Context(), "handler panic", logging.Group("http",
				"method", r.Method,
				"path", r.URL.Path,
			), logging.Group("panic",
				"value", p,
				"stack", string(debug.Stack()),
			))

			if rec, ok := w.(*StatusRecorder); ok && rec.Written() {
				return
			}

			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		}()

		next.ServeHTTP(w, r)
	})
}
