package http

import (
	"context"
	"net/http"

	context_ "github.com/mkrupp/voicechat/internal/infra/context"
	"github.com/mkrupp/voicechat/internal/infra/logging"
)

// TokenValidator resolves the value of an Authorization header to a user.
type TokenValidator interface {
	// Validate returns the ID of the user the header authenticates, whether the
	// header is accepted, and any error encountered during validation.
	Validate(ctx context.Context, header string) (int64, bool, error)
}

// TokenValidatorFunc adapts a function to TokenValidator.
type TokenValidatorFunc func(ctx context.Context, header string) (int64, bool, error)

// Validate implements TokenValidator.
func (f TokenValidatorFunc) Validate(ctx context.Context, header string) (int64, bool, error) {
	return f(ctx, header)
}

// AuthorizingMiddleware creates middleware that validates the Authorization header.
// Requests without a header or with a rejected one get 401 Unauthorized.
// On successful validation, the user ID is added to the request context.
func AuthorizingMiddleware(
	next http.Handler,
	validator TokenValidator,
	log logging.Logger,
) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(AuthorizationHeader)
		if header == "" {
			log.DebugContext(r.Context(), "no token provided")
			http.Error(w, "Token is missing", http.StatusUnauthorized)

			return
		}

		userID, ok, err := validator.Validate(r.Context(), header)
		if err != nil {
			log.ErrorContext(r.Context(), "validate token failed", "error", err)
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)

			return
		} else if !ok {
			log.DebugContext(r.Context(), "invalid token", logging.Secret("authorization", header))
			http.Error(w, "Token is invalid", http.StatusUnauthorized)

			return
		}

		next.ServeHTTP(w, r.WithContext(context_.WithUserID(r.Context(), userID)))
	})
}
