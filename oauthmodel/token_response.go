package oauthmodel

import (
	"time"

	"github.com/jrsteele09/go-broker-auth/internal/utils"
)

// TokenResponse represents the response from the provider's token endpoint.
// It is passed through untouched apart from extracting the access/refresh pair.
type TokenResponse struct {
	// AccessToken authorizes API calls: "Authorization: Bearer <access_token>".
	// Lifespan: short-lived (the brokerage issues 30 minute tokens)
	AccessToken *string `json:"access_token,omitempty"`

	// RefreshToken obtains new access tokens with grant_type=refresh_token.
	// Lifespan: long-lived (7 days); may rotate on each refresh
	RefreshToken *string `json:"refresh_token,omitempty"`

	// IdToken is returned when the provider also issues an OpenID token.
	IdToken *string `json:"id_token,omitempty"`

	TokenType string `json:"token_type,omitempty"`

	// ExpiresIn is the lifetime in seconds of the access token.
	ExpiresIn int64 `json:"expires_in,omitempty"`

	Scope string `json:"scope,omitempty"`

	// Expiry is computed locally from ExpiresIn when the response is received.
	Expiry time.Time `json:"-"`
}

// Pair extracts the two values the rest of the flow cares about.
func (t *TokenResponse) Pair() TokenPair {
	if t == nil {
		return TokenPair{}
	}
	return TokenPair{
		AccessToken:  utils.Value(t.AccessToken),
		RefreshToken: utils.Value(t.RefreshToken),
	}
}

// TokenPair is the immutable result of one successful exchange or refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

func (p TokenPair) IsZero() bool {
	return p.AccessToken == "" && p.RefreshToken == ""
}
