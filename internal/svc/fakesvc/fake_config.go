package fakesvc

import (
	"net/http"
	"slices"
	"strings"
	"time"
)

// Authorization header formats accepted by the fake backend.
const (
	// AuthModeNone serves every route without checking credentials.
	AuthModeNone = "none"
	// AuthModeBearer accepts "Bearer <token>" only.
	AuthModeBearer = "bearer"
	// AuthModeBare accepts the raw token only.
	AuthModeBare = "bare"
	// AuthModeAny accepts both forms.
	AuthModeAny = "any"
)

// FakeConfig selects the quirks of the fake chat backend.
type FakeConfig struct {
	// AuthMode is one of none, bearer, bare or any
	AuthMode string `env:"AUTH_MODE" default:"any"`
	// UserUpdateMethods lists the methods accepted on /users/{id} for profile
	// updates, comma separated. Other methods get an HTML 405 page.
	UserUpdateMethods string `env:"USER_UPDATE_METHODS" default:"PATCH,PUT,POST"`
	// DirectDelete enables DELETE on users, messages and audio. The
	// POST .../delete routes are always served.
	DirectDelete bool `env:"DIRECT_DELETE" default:"true"`
	// IssueTokens adds a token to login and register responses
	IssueTokens bool `env:"ISSUE_TOKENS" default:"true"`
	// SigningKeyFile is the path of the RSA key signing tokens, generated if
	// missing. Empty keeps an ephemeral key in memory.
	SigningKeyFile string `env:"SIGNING_KEY_FILE" default:"var/storage/chatfake.key"`
	// TokenDuration is the validity of issued tokens
	TokenDuration time.Duration `env:"TOKEN_DURATION" default:"1h"`
	// PasswordCost is the bcrypt cost of stored passwords
	PasswordCost int `env:"PASSWORD_COST" default:"10"`
	// PublicURL prefixes file URLs in responses. Empty uses the request host.
	PublicURL string `env:"PUBLIC_URL" default:""`
	// MaxUploadSize bounds multipart request bodies in bytes
	MaxUploadSize int `env:"MAX_UPLOAD_SIZE" default:"33554432"` // 32 MiB
}

// updateMethods returns the configured user update methods, normalized.
func (c FakeConfig) updateMethods() []string {
	var methods []string

	for _, method := range strings.Split(c.UserUpdateMethods, ",") {
		method = strings.ToUpper(strings.TrimSpace(method))
		if method == "" || method == http.MethodGet || method == http.MethodDelete || slices.Contains(methods, method) {
			continue
		}

		methods = append(methods, method)
	}

	return methods
}
