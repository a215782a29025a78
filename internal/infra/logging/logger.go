package logging

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Constants for log levels that match slog.Level values.
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Type aliases for commonly used slog types.
type (
	Logger  = *slog.Logger
	Handler = slog.Handler
	Level   = slog.Level
)

//nolint:gochecknoglobals
var levelNames = map[string]Level{
	"debug": LevelDebug,
	"info":  LevelInfo,
	"warn":  LevelWarn,
	"error": LevelError,
}

// LoggerConfig holds configuration parameters for logging.
type LoggerConfig struct {
	// AppName is the application identifier added to all log entries
	AppName string

	// Output specifies where logs are written ("stdout", "stderr", "discard" or a file path)
	Output string `env:"OUTPUT" default:"stderr"`

	// Level sets the minimum log level ("debug", "info", "warn", "error")
	Level string `env:"LEVEL" default:"info"`

	// Filter specifies per-logger overrides, e.g. "infra.transport:debug,svc.sessionsvc:warn"
	Filter string `env:"FILTER" default:""`

	// JSON enables JSON-formatted output instead of human-readable console output
	JSON bool `env:"JSON" default:"false"`

	// Caller adds the source position of the log call to every entry
	Caller bool `env:"CALLER" default:"false"`

	// OutputHandle, if set, replaces Output
	OutputHandle io.Writer
}

// state is the configuration shared by every logger. The level is a
// LevelVar so SetLevel affects loggers that already exist.
type state struct {
	cfg       LoggerConfig
	output    io.Writer
	level     *slog.LevelVar
	pkgLevels map[string]Level
	outputMu  sync.Mutex
}

//nolint:gochecknoglobals
var (
	Group      = slog.Group
	GroupValue = slog.GroupValue

	current   = newState(LoggerConfig{}, io.Discard) //nolint:exhaustruct
	currentMu sync.Mutex
)

func newState(cfg LoggerConfig, output io.Writer) *state {
	level := new(slog.LevelVar)
	level.Set(ParseLevel(cfg.Level, LevelInfo))

	//nolint:exhaustruct
	return &state{
		cfg:       cfg,
		output:    output,
		level:     level,
		pkgLevels: parseFilter(cfg.Filter),
	}
}

// Configure sets up global logging configuration for the application.
// Loggers obtained before Configure discard their output.
func Configure(ctx context.Context, cfg LoggerConfig, appName string) {
	cfg.AppName = appName

	output := cfg.OutputHandle
	if output == nil {
		var err error

		if output, err = openOutput(cfg.Output); err != nil {
			panic(err)
		}
	}

	currentMu.Lock()
	current = newState(cfg, output)
	currentMu.Unlock()

	GetLogger("infra.logging").With(Group("config",
		"app", cfg.AppName,
		"output", cfg.Output,
		"level", cfg.Level,
		"filter", cfg.Filter,
		"json", cfg.JSON,
		"caller", cfg.Caller,
	)).DebugContext(ctx, "logging configured")
}

func openOutput(name string) (io.Writer, error) {
	switch name {
	case "", "discard":
		return io.Discard, nil
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}

	file, err := os.OpenFile(name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	return file, nil
}

// SetLevel changes the minimum level of every logger, including existing ones.
// Per-logger filters still apply.
func SetLevel(level Level) {
	currentMu.Lock()
	defer currentMu.Unlock()

	current.level.Set(level)
}

// GetLogLogger creates a standard library *log.Logger that writes through a slog.Logger.
// Useful for adapting third-party code that expects a *log.Logger.
func GetLogLogger(logger Logger, level Level) *log.Logger {
	return slog.NewLogLogger(logger.With("stdlog", true).Handler(), level)
}

// GetLogger creates a new logger with the given name using the global configuration.
// The name is included in log entries as "logger" and selects the Filter override.
func GetLogger(name string) Logger {
	currentMu.Lock()
	st := current
	currentMu.Unlock()

	if st.output == io.Discard {
		return NewNopLogger()
	}

	var handler slog.Handler

	if st.cfg.JSON {
		//nolint:exhaustruct
		handler = slog.NewJSONHandler(st.output, &slog.HandlerOptions{
			AddSource: st.cfg.Caller,
			Level:     st.level,
		})
	} else {
		//nolint:exhaustruct
		handler = &ConsoleHandler{
			Output:    st.output,
			Level:     st.level,
			PkgLevels: st.pkgLevels,
			Caller:    st.cfg.Caller,
			mu:        &st.outputMu,
		}
	}

	logger := slog.New(NewRequestIDHandler(handler))

	if st.cfg.AppName != "" {
		logger = logger.With("app", st.cfg.AppName)
	}

	return logger.With("logger", name)
}

// Secret returns an attribute that only reveals the length and the last
// characters of a credential such as an auth token.
func Secret(key, value string) slog.Attr {
	const visible = 4

	switch {
	case value == "":
		return slog.String(key, "")
	case len(value) <= visible*2:
		return slog.String(key, strings.Repeat("*", len(value)))
	default:
		return slog.String(key, strings.Repeat("*", len(value)-visible)+value[len(value)-visible:])
	}
}

// ParseLevel parses a level name case-insensitively, returning fallback for
// unknown names.
func ParseLevel(name string, fallback Level) Level {
	level, ok := levelNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return fallback
	}

	return level
}

func parseFilter(filter string) map[string]Level {
	levels := make(map[string]Level)

	for _, entry := range strings.Split(filter, ",") {
		name, level, ok := strings.Cut(entry, ":")
		if !ok {
			continue
		}

		levels[strings.TrimSpace(name)] = ParseLevel(level, LevelDebug)
	}

	return levels
}
