package clients_test

import (
	"testing"

	"github.com/jrsteele09/go-broker-auth/clients"
	"github.com/jrsteele09/go-broker-auth/internal/config"
	"github.com/jrsteele09/go-broker-auth/oauthmodel"
	"github.com/stretchr/testify/assert"
)

func TestFromConfig(t *testing.T) {
	c := clients.FromConfig(config.EnvVars{
		ClientID:     "client-1",
		ClientSecret: "secret-1",
		RedirectURI:  "https://127.0.0.1",
		Scope:        "readonly",
	})

	assert.Equal(t, "client-1", c.ID)
	assert.Equal(t, "secret-1", c.Secret)
	assert.True(t, c.HasScope("readonly"))
	assert.False(t, c.HasScope("trade"))
}

func TestAuthorizationParameters(t *testing.T) {
	c := &clients.Client{ID: "client-1", RedirectURI: "https://127.0.0.1"}

	params := c.AuthorizationParameters()
	assert.Equal(t, oauthmodel.CodeResponseType, params.ResponseType)
	assert.Equal(t, "readonly", params.Scope)
	assert.Equal(t, "https://127.0.0.1", params.RedirectURI)
}
