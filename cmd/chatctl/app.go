package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mkrupp/voicechat/internal/infra/config"
	"github.com/mkrupp/voicechat/internal/infra/logging"
	"github.com/mkrupp/voicechat/internal/infra/metrics"
	"github.com/mkrupp/voicechat/internal/infra/transport/http"
	"github.com/mkrupp/voicechat/internal/svc/chatsvc"
	"github.com/mkrupp/voicechat/internal/svc/chatsvc/chatclient"
	"github.com/mkrupp/voicechat/internal/svc/sessionsvc"
)

type Config struct {
	config.EnvConfig

	Log     logging.LoggerConfig        `envPrefix:"LOG_"`
	API     http.ClientConfig           `envPrefix:"API_"`
	Chat    chatclient.HTTPClientConfig `envPrefix:"CHAT_"`
	Session sessionsvc.SessionConfig    `envPrefix:"SESSION_"`
}

// app holds the state shared by all commands of one invocation.
type app struct {
	in  io.Reader
	out io.Writer

	envFile string
	format  string
	verbose bool

	svc     chatsvc.ChatService
	reg     *prometheus.Registry
	closers []func() error
	log     logging.Logger
}

func newApp(in io.Reader, out io.Writer) *app {
	return &app{
		in:     in,
		out:    out,
		format: formatYAML,
		reg:    prometheus.NewRegistry(),
		log:    logging.NewNopLogger(),
	}
}

// setup loads the configuration and wires the chat service, unless one has
// been provided already.
func (a *app) setup(ctx context.Context) error {
	if a.svc != nil {
		return nil
	}

	var (
		cfg Config

		configPrefix = strings.ToUpper(strings.Join([]string{appName, svcName}, "_"))
		loggerName   = strings.ToLower(strings.Join([]string{appName, svcName}, "."))
	)

	if err := config.LoadDotEnv(a.envFile); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}

	if err := config.Parse(ctx, &cfg, configPrefix); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	logging.Configure(ctx, cfg.Log, loggerName)

	if a.verbose {
		logging.SetLevel(logging.LevelDebug)
	}

	a.log = logging.GetLogger("cmd.chatctl")

	repoFactory, err := cfg.Session.RepositoryFactory()
	if err != nil {
		return fmt.Errorf("session store: %w", err)
	}

	session, err := sessionsvc.NewKVSessionService(repoFactory)
	if err != nil {
		return fmt.Errorf("new session service: %w", err)
	}

	a.closers = append(a.closers, session.Close)

	clientMetrics := metrics.NewClientMetrics(a.reg)

	client, err := chatclient.NewHTTPClient(cfg.Chat, http.NewClient(cfg.API, nil, clientMetrics), clientMetrics)
	if err != nil {
		return fmt.Errorf("new chat client: %w", err)
	}

	a.svc = chatsvc.NewRemoteChatService(client, session)

	a.log.DebugContext(ctx, "configured", logging.Group("chat",
		"base_url", cfg.API.BaseURL,
		"session_driver", cfg.Session.Driver,
	))

	return nil
}

func (a *app) close() error {
	var errs []error

	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}

	a.closers = nil

	return errors.Join(errs...)
}

// currentUserID returns the logged in user or errNotLoggedIn.
func (a *app) currentUserID(ctx context.Context) (int64, error) {
	userID, ok, err := a.svc.CurrentUserID(ctx)
	if err != nil {
		return 0, fmt.Errorf("current user: %w", err)
	}

	if !ok {
		return 0, errNotLoggedIn
	}

	return userID, nil
}
