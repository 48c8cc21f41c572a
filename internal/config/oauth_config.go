package config

import (
	"strings"
	"time"
)

const (
	authorizePath = "/v1/oauth/authorize"
	tokenPath     = "/v1/oauth/token"
)

type OAuthConfig interface {
	GetClientID() string
	GetClientSecret() string
	GetRedirectURI() string
	GetScopes() []string
	GetAuthorizeURL() string
	GetTokenURL() string
	GetAPIBaseURL() string
	GetTokenHTTPTimeout() time.Duration
}

var _ OAuthConfig = EnvVars{}

func (e EnvVars) GetClientID() string {
	return e.ClientID
}

func (e EnvVars) GetClientSecret() string {
	return e.ClientSecret
}

func (e EnvVars) GetRedirectURI() string {
	return e.RedirectURI
}

func (e EnvVars) GetScopes() []string {
	return strings.Fields(e.Scope)
}

// GetAuthorizeURL returns the provider's authorization endpoint (e.g. "https://api.example.com/v1/oauth/authorize")
func (e EnvVars) GetAuthorizeURL() string {
	return strings.TrimRight(e.AuthBaseURL, "/") + authorizePath
}

func (e EnvVars) GetTokenURL() string {
	return strings.TrimRight(e.AuthBaseURL, "/") + tokenPath
}

func (e EnvVars) GetAPIBaseURL() string {
	return strings.TrimRight(e.APIBaseURL, "/")
}

func (e EnvVars) GetTokenHTTPTimeout() time.Duration {
	return e.TokenHTTPTimeout
}
