//go:build integration || all

package kv_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	. "github.com/mkrupp/voicechat/internal/repo/kv"
)

func TestSQLiteRepository(t *testing.T) {
	t.Parallel()

	cfg := SQLiteRepositoryConfig{DatabasePath: filepath.Join(t.TempDir(), "nested", "session.db")}

	testRepositoryContract(t, SQLiteRepositoryFactory(cfg))
}

func TestPebbleRepository(t *testing.T) {
	t.Parallel()

	cfg := PebbleRepositoryConfig{Dir: filepath.Join(t.TempDir(), "session")}

	testRepositoryContract(t, PebbleRepositoryFactory(cfg))
}

func TestPersistentRepositoriesSurviveReopen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	tests := []struct {
		name    string
		factory RepositoryFactory
	}{
		{name: "sqlite", factory: SQLiteRepositoryFactory(SQLiteRepositoryConfig{DatabasePath: filepath.Join(dir, "session.db")})},
		{name: "pebble", factory: PebbleRepositoryFactory(PebbleRepositoryConfig{Dir: filepath.Join(dir, "pebble")})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()

			repo, err := tt.factory()
			if err != nil {
				t.Fatalf("factory() error = %v", err)
			}

			if err := repo.Put(ctx, map[string]string{"auth_token": "tok1"}); err != nil {
				t.Fatalf("Put() error = %v", err)
			}

			if err := repo.Close(); err != nil {
				t.Fatalf("Close() error = %v", err)
			}

			repo, err = tt.factory()
			if err != nil {
				t.Fatalf("reopen error = %v", err)
			}
			defer repo.Close()

			if got, ok, err := repo.Get(ctx, "auth_token"); err != nil || !ok || got != "tok1" {
				t.Errorf("Get() after reopen = %q, %v, %v", got, ok, err)
			}
		})
	}
}

func TestPebbleRepositoryClosed(t *testing.T) {
	t.Parallel()

	repo, err := NewPebbleRepository(PebbleRepositoryConfig{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewPebbleRepository() error = %v", err)
	}

	if err := repo.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if err := repo.Delete(context.Background(), "auth_token"); !errors.Is(err, ErrClosed) {
		t.Errorf("Delete() error = %v, want %v", err, ErrClosed)
	}
}
