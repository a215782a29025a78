package fakesvc_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	. "github.com/mkrupp/voicechat/internal/svc/fakesvc"
)

const testKeyBits = 1024

func newIssuer(t *testing.T, mode string) *TokenIssuer {
	t.Helper()

	key, err := LoadSigningKey("", testKeyBits)
	if err != nil {
		t.Fatalf("LoadSigningKey() error = %v", err)
	}

	issuer, err := NewTokenIssuer(key, mode, time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer() error = %v", err)
	}

	return issuer
}

func TestTokenIssuerModes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		mode     string
		bearerOK bool
		bareOK   bool
		lowerOK  bool
	}{
		{mode: AuthModeBearer, bearerOK: true, lowerOK: true},
		{mode: AuthModeBare, bareOK: true},
		{mode: AuthModeAny, bearerOK: true, bareOK: true, lowerOK: true},
		{mode: AuthModeNone, bearerOK: true, bareOK: true, lowerOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			t.Parallel()

			issuer := newIssuer(t, tt.mode)

			token, err := issuer.Issue(42)
			if err != nil {
				t.Fatalf("Issue() error = %v", err)
			}

			headers := []struct {
				header string
				want   bool
			}{
				{header: "Bearer " + token, want: tt.bearerOK},
				{header: token, want: tt.bareOK},
				{header: "bearer  " + token, want: tt.lowerOK},
				{header: "Bearer garbage", want: false},
				{header: "", want: false},
			}

			for _, h := range headers {
				id, ok, err := issuer.Validate(context.Background(), h.header)
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}

				if ok != h.want || (ok && id != 42) {
					t.Errorf("Validate(%.12q) = %d, %t, want ok %t", h.header, id, ok, h.want)
				}
			}
		})
	}
}

func TestTokenIssuerRejectsExpiredTokens(t *testing.T) {
	t.Parallel()

	issuer := newIssuer(t, AuthModeAny)

	issued := time.Now().Add(-2 * time.Hour)

	token, err := issuer.WithClock(func() time.Time { return issued }).Issue(7)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if _, ok, _ := issuer.Validate(context.Background(), token); ok {
		t.Error("Validate() accepted an expired token")
	}
}

func TestTokenIssuerRejectsForeignKeys(t *testing.T) {
	t.Parallel()

	token, err := newIssuer(t, AuthModeAny).Issue(7)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if _, ok, _ := newIssuer(t, AuthModeAny).Validate(context.Background(), token); ok {
		t.Error("Validate() accepted a token signed with another key")
	}
}

func TestNewTokenIssuerUnknownMode(t *testing.T) {
	t.Parallel()

	key, err := LoadSigningKey("", testKeyBits)
	if err != nil {
		t.Fatalf("LoadSigningKey() error = %v", err)
	}

	if _, err := NewTokenIssuer(key, "basic", time.Hour); !errors.Is(err, ErrUnknownAuthMode) {
		t.Errorf("NewTokenIssuer() error = %v, want %v", err, ErrUnknownAuthMode)
	}
}

func TestLoadSigningKeyPersists(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "keys", "fake.key")

	first, err := LoadSigningKey(path, testKeyBits)
	if err != nil {
		t.Fatalf("LoadSigningKey() error = %v", err)
	}

	second, err := LoadSigningKey(path, testKeyBits)
	if err != nil {
		t.Fatalf("second LoadSigningKey() error = %v", err)
	}

	if !first.Equal(second) {
		t.Error("reloaded key differs from the generated one")
	}
}
