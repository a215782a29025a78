package sessionsvc_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mkrupp/voicechat/internal/domain"
	"github.com/mkrupp/voicechat/internal/repo/kv"
	. "github.com/mkrupp/voicechat/internal/svc/sessionsvc"
)

func newSession(t *testing.T) *KVSessionService {
	t.Helper()

	session, err := NewKVSessionService(kv.MemoryRepositoryFactory())
	if err != nil {
		t.Fatalf("NewKVSessionService() error = %v", err)
	}

	t.Cleanup(func() { _ = session.Close() })

	return session
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "5",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	return token
}

func TestSessionLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	session := newSession(t)

	if _, err := session.Token(ctx); !errors.Is(err, domain.ErrNoToken) {
		t.Fatalf("Token() on empty session error = %v, want %v", err, domain.ErrNoToken)
	}

	if err := session.Save(ctx, "tok1", 5); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if token, err := session.Token(ctx); err != nil || token != "tok1" {
		t.Errorf("Token() = %q, %v, want %q", token, err, "tok1")
	}

	if userID, ok, err := session.CurrentUserID(ctx); err != nil || !ok || userID != 5 {
		t.Errorf("CurrentUserID() = %d, %v, %v, want 5", userID, ok, err)
	}

	if err := session.SaveToken(ctx, "tok2"); err != nil {
		t.Fatalf("SaveToken() error = %v", err)
	}

	if userID, _, _ := session.CurrentUserID(ctx); userID != 5 {
		t.Errorf("SaveToken() changed the current user id to %d", userID)
	}

	if err := session.SaveCurrentUserID(ctx, 9); err != nil {
		t.Fatalf("SaveCurrentUserID() error = %v", err)
	}

	if userID, _, _ := session.CurrentUserID(ctx); userID != 9 {
		t.Errorf("CurrentUserID() = %d, want 9", userID)
	}

	if err := session.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	if _, err := session.Token(ctx); !errors.Is(err, domain.ErrNoToken) {
		t.Errorf("Token() after Clear error = %v, want %v", err, domain.ErrNoToken)
	}

	if _, ok, _ := session.CurrentUserID(ctx); ok {
		t.Error("CurrentUserID() after Clear still set")
	}
}

func TestSaveWithoutUserIDDropsPreviousUser(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	session := newSession(t)

	if err := session.Save(ctx, "tok1", 5); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if err := session.Save(ctx, "tok2", 0); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if token, err := session.Token(ctx); err != nil || token != "tok2" {
		t.Errorf("Token() = %q, %v, want %q", token, err, "tok2")
	}

	if userID, ok, err := session.CurrentUserID(ctx); err != nil || ok {
		t.Errorf("CurrentUserID() = %d, %v, %v, want none", userID, ok, err)
	}
}

func TestSaveEmptyToken(t *testing.T) {
	t.Parallel()

	if err := newSession(t).SaveToken(context.Background(), "  "); !errors.Is(err, ErrEmptyToken) {
		t.Errorf("SaveToken() error = %v, want %v", err, ErrEmptyToken)
	}
}

func TestTokenExpiry(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "opaque token", token: "tok1", wantErr: nil},
		{name: "jwt in the future", token: signedToken(t, now.Add(time.Hour)), wantErr: nil},
		{name: "jwt in the past", token: signedToken(t, now.Add(-time.Hour)), wantErr: domain.ErrTokenExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			session := newSession(t).WithClock(func() time.Time { return now })

			if err := session.SaveToken(ctx, tt.token); err != nil {
				t.Fatalf("SaveToken() error = %v", err)
			}

			_, err := session.Token(ctx)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Token() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTokenExpiryWithoutExp(t *testing.T) {
	t.Parallel()

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "5"}).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, ok := TokenExpiry(token); ok {
		t.Error("TokenExpiry() reported an expiry for a token without exp")
	}
}

func TestConcurrentSaveAndClear(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	session := newSession(t)

	var wg sync.WaitGroup

	for i := range 50 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			switch i % 3 {
			case 0:
				_ = session.Save(ctx, "tok", 5)
			case 1:
				_ = session.Clear(ctx)
			default:
				_, _ = session.Token(ctx)
			}
		}()
	}

	wg.Wait()

	// token and user id are always written and cleared together
	_, tokenErr := session.Token(ctx)
	_, hasUser, _ := session.CurrentUserID(ctx)

	if (tokenErr == nil) != hasUser {
		t.Errorf("token present = %v, user id present = %v", tokenErr == nil, hasUser)
	}
}

func TestSessionConfigRepositoryFactory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		driver  string
		wantErr bool
	}{
		{driver: DriverSQLite},
		{driver: DriverPebble},
		{driver: DriverMemory},
		{driver: "redis", wantErr: true},
	}

	for _, tt := range tests {
		factory, err := SessionConfig{Driver: tt.driver}.RepositoryFactory()
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: RepositoryFactory() error = %v, wantErr %v", tt.driver, err, tt.wantErr)
		}

		if tt.wantErr && !errors.Is(err, ErrUnknownDriver) {
			t.Errorf("%s: error = %v, want %v", tt.driver, err, ErrUnknownDriver)
		}

		if !tt.wantErr && factory == nil {
			t.Errorf("%s: nil factory", tt.driver)
		}
	}
}
