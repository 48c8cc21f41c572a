package refresh

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/go-broker-auth/internal/errors"
	"github.com/jrsteele09/go-broker-auth/oauthmodel"
	"github.com/jrsteele09/go-broker-auth/sessions"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// Exchanger performs the refresh_token grant.
type Exchanger interface {
	ExchangeRefreshToken(ctx context.Context, refreshToken string) (*oauthmodel.TokenResponse, error)
}

// Manager refreshes the access token using whatever refresh token the session holds
// at call time, never a copy taken earlier in the run.
type Manager struct {
	exchanger   Exchanger
	source      sessions.RefreshTokenSource
	lastRefresh time.Time
}

// NewManager creates a new refresh token manager
func NewManager(exchanger Exchanger, source sessions.RefreshTokenSource) *Manager {
	return &Manager{
		exchanger: exchanger,
		source:    source,
	}
}

// Refresh exchanges the current refresh token and returns the new pair.
func (m *Manager) Refresh(ctx context.Context) (oauthmodel.TokenPair, error) {
	rt := m.source.RefreshToken()
	if rt == "" {
		return oauthmodel.TokenPair{}, apperrors.ErrNoRefreshToken
	}

	resp, err := m.exchanger.ExchangeRefreshToken(ctx, rt)
	if err != nil {
		return oauthmodel.TokenPair{}, fmt.Errorf("refresh: %w", err)
	}
	m.lastRefresh = NowTimeFunc()

	pair := resp.Pair()
	if pair.RefreshToken == "" {
		pair.RefreshToken = rt
	}
	return pair, nil
}

// LastRefresh reports when the last successful refresh happened.
func (m *Manager) LastRefresh() time.Time {
	return m.lastRefresh
}
