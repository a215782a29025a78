package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/mkrupp/voicechat/internal/infra/config"
	"github.com/mkrupp/voicechat/internal/infra/logging"
	"github.com/mkrupp/voicechat/internal/infra/transport/http"
	"github.com/mkrupp/voicechat/internal/repo/blob"
	"github.com/mkrupp/voicechat/internal/repo/chat"
	"github.com/mkrupp/voicechat/internal/svc/fakesvc"
)

const (
	appName = "voicechat"
	svcName = "chatfake"
)

// Storage drivers.
const (
	storageSQLite = "sqlite"
	storageMemory = "memory"
)

var errUnknownStorage = errors.New("unknown storage driver")

type Config struct {
	config.EnvConfig

	// Storage selects where accounts, messages and files are kept: sqlite or memory
	Storage string `env:"STORAGE" default:"sqlite"`

	Log  logging.LoggerConfig                `envPrefix:"LOG_"`
	Fake fakesvc.FakeConfig                  `envPrefix:"FAKE_"`
	HTTP http.HTTPServerConfig               `envPrefix:"HTTP_"`
	DB   chat.SQLiteRepositoryConfig         `envPrefix:"DB_"`
	Blob blob.FileSystemBlobRepositoryConfig `envPrefix:"BLOB_"`
}

func main() {
	var (
		cfg Config
		ctx = context.Background()

		configPrefix = strings.ToUpper(strings.Join([]string{appName, svcName}, "_"))
		loggerName   = strings.ToLower(strings.Join([]string{appName, svcName}, "."))
	)

	if err := config.LoadDotEnv(".env"); err != nil {
		panic(err)
	}

	if err := config.Parse(ctx, &cfg, configPrefix); err != nil {
		panic(err)
	}

	logging.Configure(ctx, cfg.Log, loggerName)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg Config) (err error) {
	log := logging.GetLogger("cmd.chatfake")

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "error", "err", err)

			return
		}

		log.InfoContext(ctx, "shutdown")
	}()

	var (
		repoFactory chat.RepositoryFactory
		blobFactory blob.RepositoryFactory
	)

	switch cfg.Storage {
	case storageSQLite:
		repoFactory = chat.SQLiteRepositoryFactory(cfg.DB)
		blobFactory = blob.FileSystemBlobRepositoryFactory(cfg.Blob)
	case storageMemory:
		repoFactory = chat.MemoryRepositoryFactory()
		blobFactory = blob.MemoryBlobRepositoryFactory()
	default:
		return fmt.Errorf("%w: %q", errUnknownStorage, cfg.Storage)
	}

	signingKey, err := fakesvc.LoadSigningKey(cfg.Fake.SigningKeyFile, fakesvc.DefaultKeySize)
	if err != nil {
		return fmt.Errorf("load signing key: %w", err)
	}

	tokens, err := fakesvc.NewTokenIssuer(signingKey, cfg.Fake.AuthMode, cfg.Fake.TokenDuration)
	if err != nil {
		return fmt.Errorf("new token issuer: %w", err)
	}

	fakeSvc, err := fakesvc.NewFakeChatService(ctx, repoFactory, blobFactory, cfg.Fake)
	if err != nil {
		return fmt.Errorf("new fake chat service: %w", err)
	}

	defer func() {
		err = errors.Join(err, fakeSvc.Close())
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}), //nolint:exhaustruct
	)

	log.InfoContext(ctx, "starting", logging.Group("fake",
		"storage", cfg.Storage,
		"auth_mode", cfg.Fake.AuthMode,
		"user_update_methods", cfg.Fake.UserUpdateMethods,
		"direct_delete", cfg.Fake.DirectDelete,
		"issue_tokens", cfg.Fake.IssueTokens,
	))

	httpTransport := fakesvc.NewHTTPTransport(fakeSvc, tokens, cfg.Fake, reg, reg)

	if err := http.ListenAndServe(ctx, httpTransport, cfg.HTTP); err != nil {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}
