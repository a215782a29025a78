package sessionsvc

import (
	"errors"
	"fmt"

	"github.com/mkrupp/voicechat/internal/repo/kv"
)

// ErrUnknownDriver is returned for an unsupported session store driver.
var ErrUnknownDriver = errors.New("unknown session driver")

// Session store drivers.
const (
	DriverSQLite = "sqlite"
	DriverPebble = "pebble"
	DriverMemory = "memory"
)

// SessionConfig holds configuration for the session store.
type SessionConfig struct {
	// Driver selects the backing store: "sqlite", "pebble" or "memory"
	Driver string `env:"DRIVER" default:"sqlite"`

	SQLite kv.SQLiteRepositoryConfig `envPrefix:"SQLITE_"`
	Pebble kv.PebbleRepositoryConfig `envPrefix:"PEBBLE_"`
}

// RepositoryFactory returns the key-value repository factory for the configured driver.
func (cfg SessionConfig) RepositoryFactory() (kv.RepositoryFactory, error) {
	switch cfg.Driver {
	case DriverSQLite:
		return kv.SQLiteRepositoryFactory(cfg.SQLite), nil
	case DriverPebble:
		return kv.PebbleRepositoryFactory(cfg.Pebble), nil
	case DriverMemory:
		return kv.MemoryRepositoryFactory(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
