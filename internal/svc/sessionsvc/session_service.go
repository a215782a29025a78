package sessionsvc

import (
	"context"
)

// Keys under which the session is persisted.
const (
	KeyAuthToken     = "auth_token"
	KeyCurrentUserID = "current_user_id"
)

// SessionService holds the single active auth token and the current user ID.
// Reads may run concurrently; saves and clears are serialized.
type SessionService interface {
	// Token returns the stored token.
	// Returns domain.ErrNoToken if no token is stored and
	// domain.ErrTokenExpired if the token is a JWT past its expiry.
	Token(ctx context.Context) (string, error)

	// SaveToken replaces the stored token.
	SaveToken(ctx context.Context, token string) error

	// CurrentUserID returns the stored user ID and true, or 0 and false.
	CurrentUserID(ctx context.Context) (int64, bool, error)

	// SaveCurrentUserID replaces the stored user ID.
	SaveCurrentUserID(ctx context.Context, userID int64) error

	// Save stores token and user ID together. A userID of 0 removes the
	// stored user ID.
	Save(ctx context.Context, token string, userID int64) error

	// Clear removes the token and the user ID together.
	Clear(ctx context.Context) error

	// Close releases the backing store.
	Close() error
}
