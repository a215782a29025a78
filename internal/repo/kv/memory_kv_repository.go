package kv

import (
	"context"
	"maps"
	"sync"
)

// MemoryRepository implements Repository in process memory.
// Values do not survive a restart.
type MemoryRepository struct {
	mu      sync.RWMutex
	entries map[string]string
	closed  bool
}

var _ Repository = (*MemoryRepository)(nil)

// MemoryRepositoryFactory returns a factory creating empty MemoryRepository instances.
func MemoryRepositoryFactory() RepositoryFactory {
	return func() (Repository, error) {
		return NewMemoryRepository(), nil
	}
}

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{entries: make(map[string]string)}
}

// Get implements Repository.Get.
func (r *MemoryRepository) Get(_ context.Context, key string) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return "", false, ErrClosed
	}

	value, ok := r.entries[key]

	return value, ok, nil
}

// Put implements Repository.Put.
func (r *MemoryRepository) Put(_ context.Context, entries map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}

	maps.Copy(r.entries, entries)

	return nil
}

// Delete implements Repository.Delete.
func (r *MemoryRepository) Delete(_ context.Context, keys ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}

	for _, key := range keys {
		delete(r.entries, key)
	}

	return nil
}

// Close implements Repository.Close.
func (r *MemoryRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true

	return nil
}
