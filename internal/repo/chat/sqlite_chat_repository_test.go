//go:build integration || all

package chat_test

import (
	"path/filepath"
	"testing"

	. "github.com/mkrupp/voicechat/internal/repo/chat"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()

	repo, err := NewSQLiteRepository(SQLiteRepositoryConfig{DatabasePath: filepath.Join(t.TempDir(), "chat.db")})
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}

	t.Cleanup(func() { _ = repo.Close() })

	return repo
}

func TestSQLiteRepositoryUsers(t *testing.T) {
	t.Parallel()

	testUsers(t, newTestRepo(t))
}

func TestSQLiteRepositoryMessages(t *testing.T) {
	t.Parallel()

	testMessages(t, newTestRepo(t))
}
