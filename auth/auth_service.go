package auth

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/go-broker-auth/broker"
	"github.com/jrsteele09/go-broker-auth/clients"
	apperrors "github.com/jrsteele09/go-broker-auth/internal/errors"
	"github.com/jrsteele09/go-broker-auth/internal/logging"
	"github.com/jrsteele09/go-broker-auth/oauthmodel"
	"github.com/jrsteele09/go-broker-auth/sessions"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Listener is the callback endpoint that turns the provider redirect into tokens.
type Listener interface {
	Listen() error
	Serve(ctx context.Context) (*oauthmodel.TokenResponse, error)
	Close() error
}

// ConsentDriver drives the browser from the authorize URL to the provider redirect.
type ConsentDriver interface {
	Run(ctx context.Context, authorizeURL string) error
}

type Refresher interface {
	Refresh(ctx context.Context) (oauthmodel.TokenPair, error)
}

type AccountLister interface {
	Accounts(ctx context.Context, accessToken string) ([]broker.Account, error)
}

// Deps holds the components an AuthorizationService sequences.
type Deps struct {
	Session   *sessions.AuthorizationSession // Tokens of the current run
	Listener  Listener                       // Required by Run only
	Driver    ConsentDriver                  // Required by Run only
	Refresher Refresher
	Accounts  AccountLister
}

// Result describes what a run achieved.
type Result struct {
	RunID     string
	StartedAt time.Time

	// Tokens is the payload of the authorization code exchange; nil when no code arrived.
	Tokens *oauthmodel.TokenResponse
	// FinalTokens is the newest pair after verification.
	FinalTokens oauthmodel.TokenPair

	DriverErr error

	Accounts             []broker.Account
	AccountsErr          error
	RefreshErr           error
	AccountsAfterRefresh []broker.Account
	AccountsRefreshErr   error
}

// Verified reports whether every verification call succeeded.
func (r *Result) Verified() bool {
	return r.Tokens != nil && r.AccountsErr == nil && r.RefreshErr == nil && r.AccountsRefreshErr == nil
}

// AuthorizationService runs the unattended authorization code flow and verifies the tokens it yields.
type AuthorizationService struct {
	deps              Deps
	client            *clients.Client
	authorizeEndpoint string
	logger            zerolog.Logger
	nowTime           func() time.Time
}

type AuthorizationServiceOption func(*AuthorizationService)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) AuthorizationServiceOption {
	return func(as *AuthorizationService) {
		as.nowTime = nowFunc
	}
}

func WithLogger(logger zerolog.Logger) AuthorizationServiceOption {
	return func(as *AuthorizationService) {
		as.logger = logger
	}
}

func NewAuthorizationService(
	deps Deps,
	client *clients.Client,
	authorizeEndpoint string,
	options ...AuthorizationServiceOption,
) (*AuthorizationService, error) {
	if deps.Session == nil {
		return nil, errors.New("[NewAuthorizationService] Session is required")
	}
	if deps.Refresher == nil {
		return nil, errors.New("[NewAuthorizationService] Refresher is required")
	}
	if deps.Accounts == nil {
		return nil, errors.New("[NewAuthorizationService] Accounts is required")
	}
	if client == nil {
		return nil, errors.New("[NewAuthorizationService] client is required")
	}

	as := &AuthorizationService{
		deps:              deps,
		client:            client,
		authorizeEndpoint: authorizeEndpoint,
		logger:            log.Logger,
		nowTime:           time.Now,
	}
	for _, opt := range options {
		opt(as)
	}
	as.logger = as.logger.With().Str("run_id", deps.Session.ID).Logger()
	return as, nil
}

// Run binds the callback listener, drives the consent flow concurrently and, when a code
// was exchanged, verifies the tokens with an account listing, a refresh and a second listing.
// A run that never receives a code ends with a nil error and a nil Result.Tokens, unless
// the consent flow itself failed. A rejected code exchange aborts the run.
func (as *AuthorizationService) Run(ctx context.Context) (*Result, error) {
	if as.deps.Listener == nil || as.deps.Driver == nil {
		return nil, errors.Wrap(MissingComponentErr, "[Run] Listener and Driver are required")
	}
	result := &Result{RunID: as.deps.Session.ID, StartedAt: as.nowTime()}

	authorizeURL, err := as.client.AuthorizationParameters().AuthorizeURL(as.authorizeEndpoint)
	if err != nil {
		return result, errors.Wrap(err, "[Run] failed to build authorize URL")
	}

	// Bound before the browser starts so the redirect can never beat the listener.
	if err := as.deps.Listener.Listen(); err != nil {
		return result, errors.Wrap(err, "[Run] failed to start callback listener")
	}
	defer func() {
		if err := as.deps.Listener.Close(); err != nil {
			as.logger.Warn().Err(err).Msg("Failed to close callback listener")
		}
	}()

	tokens, err := as.acquire(ctx, authorizeURL, result)
	if err != nil {
		return result, err
	}
	if tokens == nil {
		as.logger.Warn().Msg("No tokens obtained")
		return result, result.DriverErr
	}

	result.Tokens = tokens
	as.verify(ctx, result)
	return result, nil
}

// acquire runs the listener and the consent driver side by side.
func (as *AuthorizationService) acquire(ctx context.Context, authorizeURL string, result *Result) (*oauthmodel.TokenResponse, error) {
	g, gctx := errgroup.WithContext(ctx)
	waitCtx, stopWaiting := context.WithCancel(gctx)
	defer stopWaiting()
	driverCtx, stopDriver := context.WithCancel(gctx)
	defer stopDriver()

	var (
		mu             sync.Mutex
		tokens         *oauthmodel.TokenResponse
		listenerGaveUp bool
		driverErr      error
	)

	g.Go(func() error {
		tok, err := as.deps.Listener.Serve(waitCtx)
		if err != nil {
			return errors.Wrap(err, "[Run] authorization code exchange failed")
		}
		mu.Lock()
		tokens = tok
		listenerGaveUp = tok == nil
		mu.Unlock()
		if tok == nil {
			// Nothing more can arrive, so a stuck browser is pointless.
			stopDriver()
		}
		return nil
	})

	g.Go(func() error {
		err := as.deps.Driver.Run(driverCtx, authorizeURL)
		if err == nil {
			return nil
		}
		mu.Lock()
		driverErr = err
		mu.Unlock()
		as.logger.Err(err).Msg("Consent flow did not complete")
		stopWaiting()
		return nil
	})

	if err := g.Wait(); err != nil {
		as.logger.Err(err).Msg("Authorization aborted")
		return nil, err
	}

	if driverErr != nil {
		result.DriverErr = driverErr
		// A driver stopped because the listener had already given up is not a failure of its own.
		if listenerGaveUp && apperrors.Is(driverErr, context.Canceled) {
			result.DriverErr = nil
		}
	}
	return tokens, nil
}

// verify exercises the tokens in a fixed order, each call using the newest pair.
// Failures are recorded in result and never retried.
func (as *AuthorizationService) verify(ctx context.Context, result *Result) {
	pair := result.Tokens.Pair()
	as.logger.Info().
		Str("access_token", logging.Redact(pair.AccessToken)).
		Msg("Tokens obtained, verifying")

	result.Accounts, result.AccountsErr = as.deps.Accounts.Accounts(ctx, pair.AccessToken)
	as.logVerification("accounts", len(result.Accounts), result.AccountsErr)

	refreshed, err := as.deps.Refresher.Refresh(ctx)
	result.RefreshErr = err
	if err != nil {
		as.logger.Err(err).Msg("Token refresh failed")
	} else {
		pair = refreshed
		as.logger.Info().
			Str("access_token", logging.Redact(pair.AccessToken)).
			Msg("Token refresh succeeded")
	}

	result.AccountsAfterRefresh, result.AccountsRefreshErr = as.deps.Accounts.Accounts(ctx, pair.AccessToken)
	as.logVerification("accounts_after_refresh", len(result.AccountsAfterRefresh), result.AccountsRefreshErr)

	result.FinalTokens = pair
}

func (as *AuthorizationService) logVerification(step string, accounts int, err error) {
	if err != nil {
		as.logger.Err(err).Str("step", step).Msg("Verification call failed")
		return
	}
	as.logger.Info().Str("step", step).Int("accounts", accounts).Msg("Verification call succeeded")
}

// Refresh trades a refresh token from a previous run for a new pair and checks it
// with an account listing. Only a failed refresh is returned as an error.
func (as *AuthorizationService) Refresh(ctx context.Context, refreshToken string) (*Result, error) {
	result := &Result{RunID: as.deps.Session.ID, StartedAt: as.nowTime()}
	if refreshToken == "" {
		return result, apperrors.ErrNoRefreshToken
	}
	as.deps.Session.UpdateTokens(oauthmodel.TokenPair{RefreshToken: refreshToken})

	pair, err := as.deps.Refresher.Refresh(ctx)
	if err != nil {
		result.RefreshErr = err
		return result, errors.Wrap(err, "[Refresh] refresh token exchange failed")
	}
	result.FinalTokens = pair

	result.AccountsAfterRefresh, result.AccountsRefreshErr = as.deps.Accounts.Accounts(ctx, pair.AccessToken)
	as.logVerification("accounts_after_refresh", len(result.AccountsAfterRefresh), result.AccountsRefreshErr)
	return result, nil
}
