package kv

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/mkrupp/voicechat/internal/infra/logging"
)

// PebbleRepositoryConfig holds configuration for the Pebble key-value repository.
type PebbleRepositoryConfig struct {
	// Dir is the directory holding the Pebble database
	Dir string `env:"DIR" default:"var/storage/session"`
}

// PebbleRepository implements Repository on top of a Pebble database.
type PebbleRepository struct {
	mu     sync.RWMutex
	db     *pebble.DB
	log    logging.Logger
	closed bool
}

var _ Repository = (*PebbleRepository)(nil)

// PebbleRepositoryFactory creates a factory function that returns a new PebbleRepository.
func PebbleRepositoryFactory(cfg PebbleRepositoryConfig) RepositoryFactory {
	return func() (Repository, error) {
		return NewPebbleRepository(cfg)
	}
}

// NewPebbleRepository opens (or creates) the Pebble database in cfg.Dir.
func NewPebbleRepository(cfg PebbleRepositoryConfig) (*PebbleRepository, error) {
	log := logging.GetLogger("repo.kv.pebble_repository").With(
		logging.Group("db", "dir", cfg.Dir),
	)

	//nolint:exhaustruct
	db, err := pebble.Open(cfg.Dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble: %w", err)
	}

	log.Debug("session store opened")

	return &PebbleRepository{
		db:  db,
		log: log,
	}, nil
}

// Get implements Repository.Get.
func (r *PebbleRepository) Get(_ context.Context, key string) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return "", false, ErrClosed
	}

	data, closer, err := r.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return "", false, nil
	}

	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	defer closer.Close()

	// data is only valid until closer is called
	return string(data), true, nil
}

// Put implements Repository.Put with a synced batch.
func (r *PebbleRepository) Put(_ context.Context, entries map[string]string) error {
	return r.commit(func(batch *pebble.Batch) error {
		for key, value := range entries {
			if err := batch.Set([]byte(key), []byte(value), nil); err != nil {
				return fmt.Errorf("set %s: %w", key, err)
			}
		}

		return nil
	})
}

// Delete implements Repository.Delete with a synced batch.
func (r *PebbleRepository) Delete(_ context.Context, keys ...string) error {
	return r.commit(func(batch *pebble.Batch) error {
		for _, key := range keys {
			if err := batch.Delete([]byte(key), nil); err != nil {
				return fmt.Errorf("delete %s: %w", key, err)
			}
		}

		return nil
	})
}

func (r *PebbleRepository) commit(fill func(batch *pebble.Batch) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}

	batch := r.db.NewBatch()
	defer batch.Close()

	if err := fill(batch); err != nil {
		return err
	}

	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	return nil
}

// Close implements Repository.Close.
func (r *PebbleRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrClosed
	}

	r.closed = true

	if err := r.db.Close(); err != nil {
		return fmt.Errorf("close pebble: %w", err)
	}

	return nil
}
