package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/go-broker-auth/auth"
	"github.com/jrsteele09/go-broker-auth/broker"
	"github.com/jrsteele09/go-broker-auth/browser"
	"github.com/jrsteele09/go-broker-auth/clients"
	"github.com/jrsteele09/go-broker-auth/consent"
	"github.com/jrsteele09/go-broker-auth/internal/config"
	"github.com/jrsteele09/go-broker-auth/internal/testutil"
	"github.com/jrsteele09/go-broker-auth/server"
	"github.com/jrsteele09/go-broker-auth/sessions"
	"github.com/jrsteele09/go-broker-auth/token"
	"github.com/jrsteele09/go-broker-auth/token/refresh"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRunInBrowser drives the HTML consent screens with a real Chromium through
// to the TLS callback listener, then verifies the tokens.
func TestRunInBrowser(t *testing.T) {
	tests := []struct {
		name     string
		variant  testutil.ConsentVariant
		wantPage string
	}{
		{name: "terms acceptance", variant: testutil.TermsVariant, wantPage: "/terms"},
		{name: "mobile approval", variant: testutil.MobileVariant, wantPage: "/mobile"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bin := testutil.BrowserBin(t)
			certFile, keyFile, _ := testutil.SelfSignedPair(t)

			provider := testutil.NewFakeProvider()
			t.Cleanup(provider.Close)
			provider.OnCode("abc123", "AT1", "RT1")
			provider.OnRefresh("RT1", "AT2", "RT2")

			site := testutil.NewConsentSite(tt.variant, "abc123")
			t.Cleanup(site.Close)

			cfg := config.EnvVars{
				LoginID:            "jdoe",
				Password:           "hunter2",
				ListenerAddr:       "127.0.0.1:0",
				CallbackPath:       "/",
				ListenerTimeout:    time.Minute,
				TLSCertFile:        certFile,
				TLSKeyFile:         keyFile,
				Headless:           true,
				BrowserBin:         bin,
				BrowserNoSandbox:   true,
				PageWaitTimeout:    10 * time.Second,
				NavigationTimeout:  15 * time.Second,
				SettleTimeout:      5 * time.Second,
				SettlePollInterval: 100 * time.Millisecond,
				ScrollSettle:       100 * time.Millisecond,
			}
			client := &clients.Client{
				ID:          testClientID,
				Secret:      testClientSecret,
				RedirectURI: testRedirectURI,
				Scopes:      []string{"readonly"},
			}
			session := sessions.New(testRunID)
			tokens := token.New(client, provider.TokenURL(),
				token.WithTokenSink(session),
				token.WithLogger(zerolog.Nop()))

			listener := server.New(cfg, tokens, session, server.WithLogger(zerolog.Nop()))
			require.NoError(t, listener.Listen())
			site.SetCallback("https://" + listener.Addr().String() + "/")

			openBrowser := func(ctx context.Context) (consent.Browser, error) {
				s, err := browser.Launch(ctx, cfg, browser.WithLogger(zerolog.Nop()))
				if err != nil {
					return nil, err
				}
				return s, nil
			}
			service, err := auth.NewAuthorizationService(auth.Deps{
				Session:   session,
				Listener:  listener,
				Driver:    consent.NewDriver(openBrowser, cfg, consent.WithLogger(zerolog.Nop())),
				Refresher: refresh.NewManager(tokens, session),
				Accounts:  broker.New(provider.URL(), broker.WithLogger(zerolog.Nop())),
			}, client, site.AuthorizeURL(), auth.WithLogger(zerolog.Nop()))
			require.NoError(t, err)

			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()
			result, err := service.Run(ctx)
			require.NoError(t, err)

			require.NoError(t, result.DriverErr)
			require.NotNil(t, result.Tokens)
			assert.True(t, result.Verified())
			assert.Equal(t, "AT2", result.FinalTokens.AccessToken)
			assert.Equal(t, []string{"AT1", "AT2"}, provider.AccountBearers())

			requests := provider.TokenRequests()
			require.Len(t, requests, 2)
			assert.Equal(t, "abc123", requests[0].Code)
			assert.Equal(t, "abc123", session.AuthorizationCode())

			assert.Equal(t, []testutil.Credentials{{LoginID: "jdoe", Password: "hunter2"}}, site.Logins())
			assert.Contains(t, site.Visited(), tt.wantPage)
			assert.Contains(t, site.Visited(), "/confirm")
		})
	}
}
