package token

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-broker-auth/clients"
	apperrors "github.com/jrsteele09/go-broker-auth/internal/errors"
	"github.com/jrsteele09/go-broker-auth/internal/logging"
	"github.com/jrsteele09/go-broker-auth/internal/utils"
	"github.com/jrsteele09/go-broker-auth/oauthmodel"
	"github.com/jrsteele09/go-broker-auth/sessions"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const defaultHTTPTimeout = 30 * time.Second

// Manager performs the Token Exchange Operation against the provider's token endpoint.
// Every call is a single form-encoded POST with Basic client authentication; failures
// are never retried.
type Manager struct {
	oauthConfig *oauth2.Config
	httpClient  *http.Client
	sink        sessions.TokenSink
	logger      zerolog.Logger
}

type ManagerOption func(*Manager)

// WithHTTPClient replaces the client used to reach the token endpoint.
func WithHTTPClient(client *http.Client) ManagerOption {
	return func(m *Manager) {
		m.httpClient = client
	}
}

// WithTokenSink receives the token pair of every successful exchange.
func WithTokenSink(sink sessions.TokenSink) ManagerOption {
	return func(m *Manager) {
		m.sink = sink
	}
}

func WithLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// New creates a token manager for the registered client and the provider's token URL.
func New(client *clients.Client, tokenURL string, opts ...ManagerOption) *Manager {
	m := &Manager{
		oauthConfig: &oauth2.Config{
			ClientID:     client.ID,
			ClientSecret: client.Secret,
			RedirectURL:  client.RedirectURI,
			Scopes:       client.Scopes,
			Endpoint: oauth2.Endpoint{
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		logger:     log.Logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With().Str("component", "token").Logger()

	httpClient := *m.httpClient
	httpClient.Transport = &clientAuthTransport{
		base:   m.httpClient.Transport,
		id:     client.ID,
		secret: client.Secret,
	}
	m.httpClient = &httpClient
	return m
}

// clientAuthTransport sends Basic base64(clientId:clientSecret) with the raw credentials.
// x/oauth2 form-escapes both values first, which the provider does not undo.
type clientAuthTransport struct {
	base   http.RoundTripper
	id     string
	secret string
}

func (t *clientAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	r := req.Clone(req.Context())
	r.SetBasicAuth(t.id, t.secret)
	return base.RoundTrip(r)
}

// ExchangeCode trades an authorization code for a token pair
// (grant_type=authorization_code&code=<c>&redirect_uri=<uri>).
func (m *Manager) ExchangeCode(ctx context.Context, code string) (*oauthmodel.TokenResponse, error) {
	if strings.TrimSpace(code) == "" {
		return nil, apperrors.ErrMissingCode
	}
	m.logger.Info().Str("code", logging.Redact(code)).Msg("Exchanging authorization code")

	tok, err := m.oauthConfig.Exchange(m.withClient(ctx), code)
	if err != nil {
		return nil, m.exchangeError(oauthmodel.AuthorizationCodeGrant, err)
	}
	return m.accept(oauthmodel.AuthorizationCodeGrant, tok), nil
}

// ExchangeRefreshToken trades a refresh token for a new token pair
// (grant_type=refresh_token&refresh_token=<rt>).
func (m *Manager) ExchangeRefreshToken(ctx context.Context, refreshToken string) (*oauthmodel.TokenResponse, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, apperrors.ErrNoRefreshToken
	}
	m.logger.Info().Str("refresh_token", logging.Redact(refreshToken)).Msg("Refreshing access token")

	// A token without an access token is never valid, so the source always hits the endpoint.
	src := m.oauthConfig.TokenSource(m.withClient(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, m.exchangeError(oauthmodel.RefreshTokenGrant, err)
	}
	return m.accept(oauthmodel.RefreshTokenGrant, tok), nil
}

func (m *Manager) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
}

func (m *Manager) accept(grant oauthmodel.GrantType, tok *oauth2.Token) *oauthmodel.TokenResponse {
	resp := toTokenResponse(tok)
	if m.sink != nil {
		m.sink.UpdateTokens(resp.Pair())
	}
	m.logger.Info().
		Str("grant_type", string(grant)).
		Int64("expires_in", resp.ExpiresIn).
		Bool("refresh_token_issued", resp.RefreshToken != nil).
		Msg("Token exchange succeeded")
	return resp
}

func (m *Manager) exchangeError(grant oauthmodel.GrantType, err error) error {
	exErr := &apperrors.AuthExchangeError{GrantType: string(grant), Err: err}

	var retrieveErr *oauth2.RetrieveError
	if apperrors.As(err, &retrieveErr) {
		if retrieveErr.Response != nil {
			exErr.StatusCode = retrieveErr.Response.StatusCode
		}
		exErr.ErrorCode = retrieveErr.ErrorCode
		exErr.Description = retrieveErr.ErrorDescription
		exErr.Body = string(retrieveErr.Body)
	}

	m.logger.Error().
		Err(err).
		Str("grant_type", string(grant)).
		Int("status", exErr.StatusCode).
		Msg("Token exchange failed")
	return exErr
}

func toTokenResponse(tok *oauth2.Token) *oauthmodel.TokenResponse {
	resp := &oauthmodel.TokenResponse{
		AccessToken:  utils.NonZeroPtr(tok.AccessToken),
		RefreshToken: utils.NonZeroPtr(tok.RefreshToken),
		TokenType:    tok.TokenType,
		ExpiresIn:    tok.ExpiresIn,
		Expiry:       tok.Expiry,
	}
	if resp.ExpiresIn == 0 {
		if expiresIn, ok := tok.Extra("expires_in").(float64); ok {
			resp.ExpiresIn = int64(expiresIn)
		}
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		resp.Scope = scope
	}
	if idToken, ok := tok.Extra("id_token").(string); ok {
		resp.IdToken = utils.NonZeroPtr(idToken)
	}
	return resp
}
