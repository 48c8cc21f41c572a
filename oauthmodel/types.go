package oauthmodel

// ResponseType represents the OAuth 2.0 response type requested at the authorize endpoint.
type ResponseType string

const (
	// CodeResponseType requests an authorization code that is later exchanged at the token endpoint.
	// Example: /v1/oauth/authorize?response_type=code&client_id=...
	CodeResponseType ResponseType = "code"
)

// GrantType represents the OAuth 2.0 grant type used at the token endpoint.
type GrantType string

const (
	// AuthorizationCodeGrant exchanges an authorization code for tokens.
	// Token request includes: code, redirect_uri, Basic client credentials
	AuthorizationCodeGrant GrantType = "authorization_code"

	// RefreshTokenGrant exchanges the current refresh token for a new token pair.
	// Token request includes: refresh_token, Basic client credentials
	RefreshTokenGrant GrantType = "refresh_token"
)

// DefaultScope is the only scope the brokerage grants to personal API clients.
const DefaultScope = "readonly"
