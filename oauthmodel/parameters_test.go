package oauthmodel_test

import (
	"net/url"
	"testing"

	"github.com/jrsteele09/go-broker-auth/internal/utils"
	"github.com/jrsteele09/go-broker-auth/oauthmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorizeURL(t *testing.T) {
	params := oauthmodel.AuthorizationParameters{
		ClientID:    "client-1",
		RedirectURI: "https://127.0.0.1",
	}

	raw, err := params.AuthorizeURL("https://api.example.com/v1/oauth/authorize")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/v1/oauth/authorize", u.Path)
	assert.Equal(t, "code", u.Query().Get("response_type"))
	assert.Equal(t, "client-1", u.Query().Get("client_id"))
	assert.Equal(t, "readonly", u.Query().Get("scope"))
	assert.Equal(t, "https://127.0.0.1", u.Query().Get("redirect_uri"))
	assert.False(t, u.Query().Has("state"))
}

func TestAuthorizeURLValidation(t *testing.T) {
	_, err := oauthmodel.AuthorizationParameters{RedirectURI: "https://127.0.0.1"}.AuthorizeURL("https://x")
	assert.ErrorIs(t, err, oauthmodel.ErrMissingClientID)

	_, err = oauthmodel.AuthorizationParameters{ClientID: "c", RedirectURI: "not a url"}.AuthorizeURL("https://x")
	assert.ErrorIs(t, err, oauthmodel.ErrInvalidRedirectUri)
}

func TestParseCallback(t *testing.T) {
	q, err := url.ParseQuery("code=C0.abc%40&session=xyz&state=s1")
	require.NoError(t, err)

	cb := oauthmodel.ParseCallback(q)
	assert.Equal(t, "C0.abc@", cb.Code)
	assert.Equal(t, "s1", cb.State)
	assert.Empty(t, cb.Error)
}

func TestTokenResponsePair(t *testing.T) {
	var nilResp *oauthmodel.TokenResponse
	assert.True(t, nilResp.Pair().IsZero())

	resp := &oauthmodel.TokenResponse{
		AccessToken:  utils.NonZeroPtr("AT1"),
		RefreshToken: utils.NonZeroPtr("RT1"),
	}
	assert.Equal(t, oauthmodel.TokenPair{AccessToken: "AT1", RefreshToken: "RT1"}, resp.Pair())
}
