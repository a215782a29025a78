package blob

import (
	"context"
	"fmt"
	"sync"
)

// MemoryRepository implements Repository in memory.
type MemoryRepository struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

var _ Repository = (*MemoryRepository)(nil)

// MemoryBlobRepositoryFactory returns a factory whose repositories share
// nothing with each other.
func MemoryBlobRepositoryFactory() RepositoryFactory {
	return func(context.Context, string) (Repository, error) {
		return NewMemoryRepository(), nil
	}
}

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{blobs: make(map[string][]byte)}
}

// Exists implements Repository.Exists.
func (r *MemoryRepository) Exists(_ context.Context, key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.blobs[key]

	return ok
}

// Store implements Repository.Store.
func (r *MemoryRepository) Store(_ context.Context, key string, data []byte) error {
	if key == "" {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.blobs[key] = append([]byte(nil), data...)

	return nil
}

// Fetch implements Repository.Fetch.
func (r *MemoryRepository) Fetch(_ context.Context, key string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	data, ok := r.blobs[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBlobNotFound, key)
	}

	return append([]byte(nil), data...), nil
}

// Delete implements Repository.Delete.
func (r *MemoryRepository) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.blobs[key]; !ok {
		return fmt.Errorf("%w: %s", ErrBlobNotFound, key)
	}

	delete(r.blobs, key)

	return nil
}
