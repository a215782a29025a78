package fakesvc

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	transport "github.com/mkrupp/voicechat/internal/infra/transport/http"
)

// ErrUnknownAuthMode is returned for an AuthMode other than the AuthMode constants.
var ErrUnknownAuthMode = errors.New("unknown auth mode")

const bearerScheme = "Bearer"

// TokenIssuer signs and validates RS256 tokens carrying a user ID as subject.
type TokenIssuer struct {
	key      *rsa.PrivateKey
	mode     string
	duration time.Duration
	now      func() time.Time
}

var _ transport.TokenValidator = (*TokenIssuer)(nil)

// NewTokenIssuer creates a TokenIssuer accepting headers in the given mode.
func NewTokenIssuer(key *rsa.PrivateKey, mode string, duration time.Duration) (*TokenIssuer, error) {
	switch mode {
	case AuthModeNone, AuthModeBearer, AuthModeBare, AuthModeAny:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAuthMode, mode)
	}

	return &TokenIssuer{
		key:      key,
		mode:     mode,
		duration: duration,
		now:      time.Now,
	}, nil
}

// WithClock returns a copy of the issuer reading the time from now.
func (i *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	clone := *i
	clone.now = now

	return &clone
}

// Mode returns the accepted header format.
func (i *TokenIssuer) Mode() string {
	return i.mode
}

// Issue returns a signed token for the user.
func (i *TokenIssuer) Issue(userID int64) (string, error) {
	now := i.now()

	//nolint:exhaustruct
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.duration)),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(i.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return token, nil
}

// Validate implements transport.TokenValidator. Headers in a format the mode
// does not accept, and invalid or expired tokens, are rejected without error.
func (i *TokenIssuer) Validate(_ context.Context, header string) (int64, bool, error) {
	tokenString, ok := i.extract(strings.TrimSpace(header))
	if !ok {
		return 0, false, nil
	}

	claims := &jwt.RegisteredClaims{}

	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return &i.key.PublicKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return 0, false, nil //nolint:nilerr
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, false, nil //nolint:nilerr
	}

	return userID, true, nil
}

func (i *TokenIssuer) extract(header string) (string, bool) {
	scheme, rest, found := strings.Cut(header, " ")
	bearer := found && strings.EqualFold(scheme, bearerScheme)

	switch {
	case header == "":
		return "", false
	case bearer && i.mode != AuthModeBare:
		return strings.TrimSpace(rest), true
	case !found && i.mode != AuthModeBearer:
		return header, true
	default:
		return "", false
	}
}
