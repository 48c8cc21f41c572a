package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/go-broker-auth/internal/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	accountsPath   = "/trader/v1/accounts"
	maxErrorBody   = 4096
	defaultTimeout = 30 * time.Second
)

// Account is one entry of the account listing.
type Account struct {
	SecuritiesAccount SecuritiesAccount `json:"securitiesAccount"`
}

type SecuritiesAccount struct {
	AccountNumber string     `json:"accountNumber"`
	Type          string     `json:"type"`
	Positions     []Position `json:"positions,omitempty"`
}

type Position struct {
	LongQuantity  float64    `json:"longQuantity"`
	ShortQuantity float64    `json:"shortQuantity"`
	MarketValue   float64    `json:"marketValue"`
	Instrument    Instrument `json:"instrument"`
}

type Instrument struct {
	Symbol    string `json:"symbol"`
	AssetType string `json:"assetType"`
}

// Client is a thin wrapper over the brokerage's REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

type ClientOption func(*Client)

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

func New(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     log.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With().Str("component", "broker").Logger()
	return c
}

// Accounts lists the linked accounts with their positions using the given access token.
func (c *Client) Accounts(ctx context.Context, accessToken string) ([]Account, error) {
	if accessToken == "" {
		return nil, apperrors.ErrNoAccessToken
	}

	u, err := url.Parse(c.baseURL + accountsPath)
	if err != nil {
		return nil, fmt.Errorf("accounts url: %w", err)
	}
	u.RawQuery = url.Values{"fields": {"positions"}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("accounts request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.bearerClient(ctx, accessToken).Do(req)
	if err != nil {
		return nil, &apperrors.UpstreamAPIError{Op: "accounts", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Error().Int("status", resp.StatusCode).Msg("Account listing failed")
		return nil, &apperrors.UpstreamAPIError{Op: "accounts", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var accounts []Account
	if err := json.NewDecoder(resp.Body).Decode(&accounts); err != nil {
		return nil, &apperrors.UpstreamAPIError{Op: "accounts", StatusCode: resp.StatusCode, Err: fmt.Errorf("decode: %w", err)}
	}

	c.logger.Info().Int("accounts", len(accounts)).Msg("Account listing succeeded")
	return accounts, nil
}

// bearerClient wraps the base client so every request carries "Authorization: Bearer <token>".
func (c *Client) bearerClient(ctx context.Context, accessToken string) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))
	client.Timeout = c.httpClient.Timeout
	return client
}
