package main

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-broker-auth/auth"
	"github.com/jrsteele09/go-broker-auth/broker"
	"github.com/jrsteele09/go-broker-auth/browser"
	"github.com/jrsteele09/go-broker-auth/clients"
	"github.com/jrsteele09/go-broker-auth/consent"
	"github.com/jrsteele09/go-broker-auth/internal/config"
	"github.com/jrsteele09/go-broker-auth/internal/logging"
	"github.com/jrsteele09/go-broker-auth/server"
	"github.com/jrsteele09/go-broker-auth/sessions"
	"github.com/jrsteele09/go-broker-auth/token"
	"github.com/jrsteele09/go-broker-auth/token/refresh"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// app wires the components of a single run.
type app struct {
	cfg     config.Config
	runID   string
	logger  zerolog.Logger
	session *sessions.AuthorizationSession
	client  *clients.Client
	tokens  *token.Manager
}

func newApp(cmd *cobra.Command, opts *rootOptions) (*app, error) {
	if err := applyFlagOverrides(cmd, opts); err != nil {
		return nil, err
	}
	cfg, err := config.Load(opts.envFiles...)
	if err != nil {
		return nil, err
	}

	logger := logging.Setup(cfg.GetLogLevel(), cfg.GetLogPretty())
	if cfg.GetLogPretty() {
		displayAppname(cfg.GetAppName())
	}

	runID := uuid.New().String()
	logger = logger.With().Str("run_id", runID).Logger()
	logger.Info().Str("env", cfg.GetEnv()).Msg("Starting run")

	session := sessions.New(runID)
	client := clients.FromConfig(cfg)
	tokens := token.New(client, cfg.GetTokenURL(),
		token.WithHTTPClient(&http.Client{Timeout: cfg.GetTokenHTTPTimeout()}),
		token.WithTokenSink(session),
		token.WithLogger(logger))

	return &app{
		cfg:     cfg,
		runID:   runID,
		logger:  logger,
		session: session,
		client:  client,
		tokens:  tokens,
	}, nil
}

func (a *app) accounts() *broker.Client {
	return broker.New(a.cfg.GetAPIBaseURL(),
		broker.WithHTTPClient(&http.Client{Timeout: a.cfg.GetTokenHTTPTimeout()}),
		broker.WithLogger(a.logger))
}

func (a *app) openBrowser(ctx context.Context) (consent.Browser, error) {
	shots := browser.NewScreenshotter(a.cfg.GetScreenshotDir(), a.runID, a.cfg.GetScreenshotsEnabled(), a.logger)
	s, err := browser.Launch(ctx, a.cfg,
		browser.WithLogger(a.logger),
		browser.WithScreenshotter(shots),
		browser.WithTimeouts(browser.Timeouts{
			Wait:       a.cfg.GetPageWaitTimeout(),
			Navigation: a.cfg.GetNavigationTimeout(),
		}))
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (a *app) authorizationService() (*auth.AuthorizationService, error) {
	listener := server.New(a.cfg, a.tokens, a.session, server.WithLogger(a.logger))
	driver := consent.NewDriver(a.openBrowser, a.cfg, consent.WithLogger(a.logger))

	return auth.NewAuthorizationService(auth.Deps{
		Session:   a.session,
		Listener:  listener,
		Driver:    driver,
		Refresher: refresh.NewManager(a.tokens, a.session),
		Accounts:  a.accounts(),
	}, a.client, a.cfg.GetAuthorizeURL(), auth.WithLogger(a.logger))
}

func (a *app) refreshService() (*auth.AuthorizationService, error) {
	return auth.NewAuthorizationService(auth.Deps{
		Session:   a.session,
		Refresher: refresh.NewManager(a.tokens, a.session),
		Accounts:  a.accounts(),
	}, a.client, a.cfg.GetAuthorizeURL(), auth.WithLogger(a.logger))
}

func (a *app) report(result *auth.Result) {
	event := a.logger.Info()
	if result.DriverErr != nil || !result.FinalTokens.IsZero() && !a.verifiedCalls(result) {
		event = a.logger.Warn()
	}
	event.
		Bool("tokens", !result.FinalTokens.IsZero()).
		Str("access_token", logging.Redact(result.FinalTokens.AccessToken)).
		Int("accounts", len(result.AccountsAfterRefresh)).
		Int("token_updates", a.session.Updates()).
		AnErr("driver_error", result.DriverErr).
		AnErr("accounts_error", result.AccountsErr).
		AnErr("refresh_error", result.RefreshErr).
		AnErr("accounts_after_refresh_error", result.AccountsRefreshErr).
		Msg("Run finished")
}

func (a *app) verifiedCalls(result *auth.Result) bool {
	return result.AccountsErr == nil && result.RefreshErr == nil && result.AccountsRefreshErr == nil
}
