package clients

import (
	"strings"

	"github.com/jrsteele09/go-broker-auth/internal/config"
	"github.com/jrsteele09/go-broker-auth/oauthmodel"
)

// Client is the application registered with the brokerage's developer portal.
// It is always a confidential client: the secret is sent with every token request.
type Client struct {
	ID          string   `json:"id"`
	Secret      string   `json:"secret"`
	RedirectURI string   `json:"redirectURI"`
	Scopes      []string `json:"scopes"`
}

// FromConfig builds the client registration from the provider configuration.
func FromConfig(cfg config.OAuthConfig) *Client {
	return &Client{
		ID:          cfg.GetClientID(),
		Secret:      cfg.GetClientSecret(),
		RedirectURI: cfg.GetRedirectURI(),
		Scopes:      cfg.GetScopes(),
	}
}

// HasScope checks if the client was configured with a specific scope
func (c *Client) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Scope returns the space separated scope list, defaulting to readonly.
func (c *Client) Scope() string {
	if len(c.Scopes) == 0 {
		return oauthmodel.DefaultScope
	}
	return strings.Join(c.Scopes, " ")
}

// AuthorizationParameters returns the authorize request for this client.
func (c *Client) AuthorizationParameters() oauthmodel.AuthorizationParameters {
	return oauthmodel.AuthorizationParameters{
		ClientID:     c.ID,
		ResponseType: oauthmodel.CodeResponseType,
		RedirectURI:  c.RedirectURI,
		Scope:        c.Scope(),
	}
}
