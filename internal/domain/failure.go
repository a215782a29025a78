package domain

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrNoToken is returned when an authenticated operation is invoked without a stored token.
	ErrNoToken = errors.New("no token available")
	// ErrTokenExpired is returned when the stored token carries an expiry in the past.
	ErrTokenExpired = errors.New("token expired")
	// ErrEmptyResponse is returned when the server accepted a request but sent no payload.
	ErrEmptyResponse = errors.New("empty response")
	// ErrNotAnObject is returned when a loose payload element is not a JSON object.
	ErrNotAnObject = errors.New("not a JSON object")
)

// FailureKind classifies a Failure.
type FailureKind int

const (
	// KindTransport covers network errors, timeouts and refused connections.
	KindTransport FailureKind = iota + 1
	// KindHTTP covers non-2xx responses.
	KindHTTP
	// KindMissingCredential covers calls made without a usable token.
	KindMissingCredential
	// KindCoercion covers payloads that cannot be turned into domain values.
	KindCoercion
	// KindValidation covers inputs rejected before any request is sent.
	KindValidation
	// KindStorage covers session store errors.
	KindStorage
)

//nolint:gochecknoglobals
var failureKindNames = map[FailureKind]string{
	KindTransport:         "transport",
	KindHTTP:              "http",
	KindMissingCredential: "missing_credential",
	KindCoercion:          "coercion",
	KindValidation:        "validation",
	KindStorage:           "storage",
}

// String returns the name of the kind.
func (k FailureKind) String() string {
	if name, ok := failureKindNames[k]; ok {
		return name
	}

	return "unknown"
}

// Failure is the error type returned across the client boundary.
// Its message is always human readable: free of HTML markup and with
// whitespace collapsed.
type Failure struct {
	Kind     FailureKind
	Op       string
	Status   int
	Body     string
	Attempts []string
	Err      error

	message string
}

// NewFailure creates a Failure with a sanitized message.
func NewFailure(kind FailureKind, op, message string, err error) *Failure {
	return &Failure{
		Kind:    kind,
		Op:      op,
		Err:     err,
		message: SanitizeMessage(message),
	}
}

// Error implements error.
func (f *Failure) Error() string {
	switch {
	case f.message != "":
		return f.message
	case f.Err != nil:
		return SanitizeMessage(f.Op + " failed: " + f.Err.Error())
	default:
		return f.Op + " failed"
	}
}

// Unwrap returns the underlying error, if any.
func (f *Failure) Unwrap() error {
	return f.Err
}

// AsFailure returns err as a *Failure, wrapping it with the given kind and op if needed.
func AsFailure(err error, kind FailureKind, op string) *Failure {
	if err == nil {
		return nil
	}

	var failure *Failure
	if errors.As(err, &failure) {
		return failure
	}

	return NewFailure(kind, op, op+" failed: "+err.Error(), err)
}

// IsKind reports whether err is a Failure of the given kind.
func IsKind(err error, kind FailureKind) bool {
	var failure *Failure

	return errors.As(err, &failure) && failure.Kind == kind
}

//nolint:gochecknoglobals
var (
	htmlTagPattern    = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// SanitizeMessage replaces HTML tags with spaces, drops stray angle brackets
// and collapses runs of whitespace into single spaces.
func SanitizeMessage(message string) string {
	message = htmlTagPattern.ReplaceAllString(message, " ")
	message = strings.NewReplacer("<", " ", ">", " ").Replace(message)
	message = whitespacePattern.ReplaceAllString(message, " ")

	return strings.TrimSpace(message)
}
