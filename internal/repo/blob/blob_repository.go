package blob

import (
	"context"
	"errors"
)

var (
	// ErrBlobNotFound is returned when no blob is stored under a key.
	ErrBlobNotFound = errors.New("blob not found")
	// ErrInvalidKey is returned for keys that are empty or contain path elements.
	ErrInvalidKey = errors.New("invalid blob key")
)

// Repository defines the interface for storing uploaded files by key.
type Repository interface {
	// Exists checks if a blob with the given key exists.
	Exists(ctx context.Context, key string) bool

	// Store persists data under key, replacing any previous content.
	Store(ctx context.Context, key string, data []byte) error

	// Fetch retrieves the blob stored under key.
	// Returns ErrBlobNotFound if there is none.
	Fetch(ctx context.Context, key string) ([]byte, error)

	// Delete removes the blob stored under key.
	// Returns ErrBlobNotFound if there is none.
	Delete(ctx context.Context, key string) error
}

// RepositoryFactory is a function that creates a new Repository instance
// storing its blobs in the named subdirectory.
type RepositoryFactory func(ctx context.Context, subdir string) (Repository, error)
