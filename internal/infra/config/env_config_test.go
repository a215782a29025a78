package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/mkrupp/voicechat/internal/infra/config"
)

type testConfig struct {
	EnvConfig

	BaseURL   string        `env:"BASE_URL"   default:"http://localhost:5000"`
	Burst     int           `env:"BURST"      default:"4"`
	RateLimit float64       `env:"RATE_LIMIT" default:"0.5"`
	Timeout   time.Duration `env:"TIMEOUT"    default:"30s"`
	JSON      bool          `env:"JSON"       default:"true"`
	NoEnvTag  string
	Session   testSessionConfig `envPrefix:"SESSION_"`
}

type testSessionConfig struct {
	Driver string `env:"DRIVER" default:"sqlite"`
}

func defaultTestConfig() testConfig {
	return testConfig{
		BaseURL:   "http://localhost:5000",
		Burst:     4,
		RateLimit: 0.5,
		Timeout:   30 * time.Second,
		JSON:      true,
		Session:   testSessionConfig{Driver: "sqlite"},
	}
}

func assertConfig(t *testing.T, got, want testConfig) {
	t.Helper()

	if got.BaseURL != want.BaseURL {
		t.Errorf("BaseURL = %v, want %v", got.BaseURL, want.BaseURL)
	}
	if got.Burst != want.Burst {
		t.Errorf("Burst = %v, want %v", got.Burst, want.Burst)
	}
	if got.RateLimit != want.RateLimit {
		t.Errorf("RateLimit = %v, want %v", got.RateLimit, want.RateLimit)
	}
	if got.Timeout != want.Timeout {
		t.Errorf("Timeout = %v, want %v", got.Timeout, want.Timeout)
	}
	if got.JSON != want.JSON {
		t.Errorf("JSON = %v, want %v", got.JSON, want.JSON)
	}
	if got.NoEnvTag != want.NoEnvTag {
		t.Errorf("NoEnvTag = %v, want %v", got.NoEnvTag, want.NoEnvTag)
	}
	if got.Session.Driver != want.Session.Driver {
		t.Errorf("Session.Driver = %v, want %v", got.Session.Driver, want.Session.Driver)
	}
}

//nolint:paralleltest
func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		prefix  string
		envVars map[string]string
		want    func(cfg *testConfig)
		wantErr bool
	}{
		{
			name:    "uses default values when env vars not set",
			envVars: map[string]string{},
			want:    func(*testConfig) {},
		},
		{
			name: "reads environment variables",
			envVars: map[string]string{
				"BASE_URL":       "http://chat.local",
				"BURST":          "10",
				"RATE_LIMIT":     "2.5",
				"TIMEOUT":        "1m30s",
				"JSON":           "false",
				"SESSION_DRIVER": "pebble",
			},
			want: func(cfg *testConfig) {
				cfg.BaseURL = "http://chat.local"
				cfg.Burst = 10
				cfg.RateLimit = 2.5
				cfg.Timeout = 90 * time.Second
				cfg.JSON = false
				cfg.Session.Driver = "pebble"
			},
		},
		{
			name:   "prefers more specific prefix",
			prefix: "VOICECHAT_CHATCTL",
			envVars: map[string]string{
				"VOICECHAT_TIMEOUT":          "5s",
				"VOICECHAT_CHATCTL_TIMEOUT":  "7s",
				"VOICECHAT_SESSION_DRIVER":   "memory",
				"VOICECHAT_CHATCTL_BASE_URL": "http://specific",
			},
			want: func(cfg *testConfig) {
				cfg.Timeout = 7 * time.Second
				cfg.BaseURL = "http://specific"
				cfg.Session.Driver = "memory"
			},
		},
		{
			name:    "fails on invalid duration",
			envVars: map[string]string{"TIMEOUT": "soon"},
			wantErr: true,
		},
		{
			name:    "fails on invalid float",
			envVars: map[string]string{"RATE_LIMIT": "fast"},
			wantErr: true,
		},
		{
			name:    "fails on invalid bool",
			envVars: map[string]string{"JSON": "maybe"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := &testConfig{}
			err := Parse(context.Background(), cfg, tt.prefix)

			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}

			if tt.wantErr {
				return
			}

			want := defaultTestConfig()
			tt.want(&want)
			assertConfig(t, *cfg, want)

			if cfg.Namespace() != tt.prefix {
				t.Errorf("Namespace() = %q, want %q", cfg.Namespace(), tt.prefix)
			}
		})
	}
}

func TestParseRequiredVar(t *testing.T) {
	t.Parallel()

	cfg := &struct {
		EnvConfig

		Token string `env:"REQUIRED_TOKEN_WITHOUT_DEFAULT"`
	}{}

	err := Parse(context.Background(), cfg, "")
	if !errors.Is(err, ErrVarNotSet) {
		t.Errorf("expected ErrVarNotSet, got %v", err)
	}
}

func TestParseInvalidConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  any
	}{
		{name: "non-pointer config", cfg: testConfig{}},
		{name: "non-struct pointer", cfg: new(string)},
		{name: "missing EnvConfig embedding", cfg: &struct {
			Value string `env:"VALUE"`
		}{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := Parse(context.Background(), tt.cfg, "")
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected error %v, got %v", ErrInvalidConfig, err)
			}
		})
	}
}

//nolint:paralleltest
func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")

	if err := os.WriteFile(path, []byte("VOICECHAT_DOTENV_PROBE=from-file\n"), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}

	t.Setenv("VOICECHAT_DOTENV_PROBE", "")
	os.Unsetenv("VOICECHAT_DOTENV_PROBE")

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), path); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}

	if got := os.Getenv("VOICECHAT_DOTENV_PROBE"); got != "from-file" {
		t.Errorf("VOICECHAT_DOTENV_PROBE = %q, want %q", got, "from-file")
	}
}
