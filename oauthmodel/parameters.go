package oauthmodel

import (
	"net/url"
	"strings"
)

// AuthorizationParameters holds the query parameters sent to the provider's /v1/oauth/authorize endpoint.
type AuthorizationParameters struct {
	// ClientID identifies the registered application (the brokerage calls it the "App Key").
	// Required: Yes
	ClientID string

	// ResponseType is always "code"; defaulted when empty.
	ResponseType ResponseType

	// RedirectURI is where the browser lands with ?code=...
	// Required: Yes
	// Must exactly match the callback URL registered with the provider.
	RedirectURI string

	// Scope is a space separated scope list; defaults to "readonly".
	Scope string

	// State is optional; the brokerage ignores it but echoes it when present.
	State string
}

// Validate checks the parameters that the provider rejects outright.
func (p AuthorizationParameters) Validate() error {
	if strings.TrimSpace(p.ClientID) == "" {
		return ErrMissingClientID
	}
	u, err := url.Parse(p.RedirectURI)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ErrInvalidRedirectUri
	}
	return nil
}

// AuthorizeURL returns the full authorize URL for the given endpoint.
func (p AuthorizationParameters) AuthorizeURL(endpoint string) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}

	responseType := p.ResponseType
	if responseType == "" {
		responseType = CodeResponseType
	}
	scope := p.Scope
	if scope == "" {
		scope = DefaultScope
	}

	q := u.Query()
	q.Set("response_type", string(responseType))
	q.Set("client_id", p.ClientID)
	q.Set("scope", scope)
	q.Set("redirect_uri", p.RedirectURI)
	if p.State != "" {
		q.Set("state", p.State)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// CallbackParameters are the values the provider appends to the redirect URI.
type CallbackParameters struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// ParseCallback reads the redirect query. The brokerage URL-encodes codes that end
// in '@', so the value is taken from the decoded query as-is.
func ParseCallback(q url.Values) CallbackParameters {
	return CallbackParameters{
		Code:             strings.TrimSpace(q.Get("code")),
		State:            strings.TrimSpace(q.Get("state")),
		Error:            strings.TrimSpace(q.Get("error")),
		ErrorDescription: strings.TrimSpace(q.Get("error_description")),
	}
}
