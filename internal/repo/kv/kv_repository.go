package kv

import (
	"context"
	"errors"
)

var (
	// ErrClosed is returned when a repository is used after Close.
	ErrClosed = errors.New("repository closed")
	// ErrReadOnly is returned when the backing store rejects writes.
	ErrReadOnly = errors.New("repository is read-only")
)

// Repository defines the interface for small string key-value persistence.
type Repository interface {
	// Get retrieves the value stored under key.
	// Returns the value and true if found, or "" and false if not found.
	// Returns an error if the operation fails.
	Get(ctx context.Context, key string) (string, bool, error)

	// Put stores all entries atomically.
	Put(ctx context.Context, entries map[string]string) error

	// Delete removes all keys atomically. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error

	// Close releases any resources held by the repository.
	// Returns an error if cleanup fails.
	Close() error
}

// RepositoryFactory is a function that creates a new Repository instance.
// Returns an error if initialization fails.
type RepositoryFactory func() (Repository, error)
