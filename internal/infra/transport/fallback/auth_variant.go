package fallback

import (
	"strings"
	"unicode"
)

// BearerPrefix is the scheme prefix of a bearer Authorization header.
const BearerPrefix = "Bearer "

// AuthVariant is one way of presenting a token in the Authorization header.
type AuthVariant struct {
	// Name labels the variant in logs and metrics.
	Name string
	// Format turns a bare token into the header value.
	Format func(token string) string
}

//nolint:gochecknoglobals
var (
	// BearerAuth sends "Bearer <token>".
	BearerAuth = AuthVariant{
		Name:   "bearer",
		Format: func(token string) string { return BearerPrefix + token },
	}

	// BareAuth sends the token without any scheme prefix.
	BareAuth = AuthVariant{
		Name:   "bare",
		Format: func(token string) string { return token },
	}

	noAuth = AuthVariant{Name: "none", Format: nil}
)

// DefaultAuthVariants returns the variants tried for every token: the
// prefixed form first, then the bare token.
func DefaultAuthVariants() []AuthVariant {
	return []AuthVariant{BearerAuth, BareAuth}
}

// BareToken strips any number of case-insensitive "Bearer" schemes and
// surrounding whitespace, so that no variant ever double-prefixes a token.
// A scheme without a token yields "".
func BareToken(token string) string {
	scheme := strings.TrimSpace(BearerPrefix)

	for {
		token = strings.TrimSpace(token)
		if len(token) < len(scheme) || !strings.EqualFold(token[:len(scheme)], scheme) {
			return token
		}

		rest := token[len(scheme):]
		if rest != "" && !unicode.IsSpace(rune(rest[0])) {
			return token
		}

		token = rest
	}
}
