package sessions

import (
	"sync"
	"time"

	apperrors "github.com/jrsteele09/go-broker-auth/internal/errors"
	"github.com/jrsteele09/go-broker-auth/oauthmodel"
)

// CodeRecorder is the narrow contract the callback listener uses to hand over the code.
type CodeRecorder interface {
	RecordCode(code string) error
}

// TokenSink receives every token pair produced by an exchange or refresh.
type TokenSink interface {
	UpdateTokens(pair oauthmodel.TokenPair)
}

// RefreshTokenSource exposes the most recently stored refresh token.
type RefreshTokenSource interface {
	RefreshToken() string
}

// AuthorizationSession stores the OAuth2 state of a single run.
// The authorization code is written once; tokens are last-write-wins.
type AuthorizationSession struct {
	ID string // Run identifier (UUID)

	mu           sync.RWMutex
	code         string
	codeAt       time.Time
	accessToken  string
	refreshToken string
	updatedAt    time.Time
	updates      int

	nowTime func() time.Time
}

var (
	_ CodeRecorder       = (*AuthorizationSession)(nil)
	_ TokenSink          = (*AuthorizationSession)(nil)
	_ RefreshTokenSource = (*AuthorizationSession)(nil)
)

// New creates an empty session for the given run.
func New(id string) *AuthorizationSession {
	return &AuthorizationSession{ID: id, nowTime: time.Now}
}

// RecordCode stores the authorization code. A second call never overwrites the first.
func (s *AuthorizationSession) RecordCode(code string) error {
	if code == "" {
		return apperrors.ErrMissingCode
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.code != "" {
		return apperrors.ErrCodeAlreadyRecorded
	}
	s.code = code
	s.codeAt = s.nowTime()
	return nil
}

func (s *AuthorizationSession) AuthorizationCode() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.code
}

// UpdateTokens replaces the stored pair. An empty refresh token keeps the previous one,
// since providers are allowed to omit it on refresh when it did not rotate.
func (s *AuthorizationSession) UpdateTokens(pair oauthmodel.TokenPair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = pair.AccessToken
	if pair.RefreshToken != "" {
		s.refreshToken = pair.RefreshToken
	}
	s.updatedAt = s.nowTime()
	s.updates++
}

func (s *AuthorizationSession) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

func (s *AuthorizationSession) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshToken
}

// Valid reports whether at least one exchange has completed.
func (s *AuthorizationSession) Valid() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken != ""
}

// Updates returns how many token pairs have been stored.
func (s *AuthorizationSession) Updates() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updates
}
