package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// TokenRequest is one call received by the fake token endpoint.
type TokenRequest struct {
	GrantType     string
	Code          string
	RedirectURI   string
	RefreshToken  string
	ClientID      string
	ClientSecret  string
	// Authorization is the raw Authorization header.
	Authorization string
	RawBody       string
}

type tokenReply struct {
	status int
	body   map[string]any
}

// FakeProvider emulates the brokerage's token and account endpoints.
type FakeProvider struct {
	Server *httptest.Server

	mu             sync.Mutex
	tokenRequests  []TokenRequest
	accountBearers []string
	byCode         map[string]tokenReply
	byRefresh      map[string]tokenReply
	accountsStatus int
	accountsBody   string
}

const DefaultAccountsBody = `[{"securitiesAccount":{"accountNumber":"12345678","type":"MARGIN",` +
	`"positions":[{"longQuantity":10,"marketValue":1900.5,"instrument":{"symbol":"AAPL","assetType":"EQUITY"}}]}}]`

// NewFakeProvider starts the fake; it is closed through t.Cleanup by the caller.
func NewFakeProvider() *FakeProvider {
	p := &FakeProvider{
		byCode:         make(map[string]tokenReply),
		byRefresh:      make(map[string]tokenReply),
		accountsStatus: http.StatusOK,
		accountsBody:   DefaultAccountsBody,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/oauth/token", p.token)
	mux.HandleFunc("GET /trader/v1/accounts", p.accounts)
	p.Server = httptest.NewServer(mux)
	return p
}

func (p *FakeProvider) Close() {
	p.Server.Close()
}

func (p *FakeProvider) URL() string {
	return p.Server.URL
}

func (p *FakeProvider) TokenURL() string {
	return p.Server.URL + "/v1/oauth/token"
}

// OnCode answers the authorization_code grant for code with the given pair.
func (p *FakeProvider) OnCode(code, accessToken, refreshToken string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byCode[code] = tokenReply{status: http.StatusOK, body: tokenBody(accessToken, refreshToken)}
}

// OnRefresh answers the refresh_token grant for rt with the given pair.
func (p *FakeProvider) OnRefresh(rt, accessToken, refreshToken string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byRefresh[rt] = tokenReply{status: http.StatusOK, body: tokenBody(accessToken, refreshToken)}
}

// FailCode answers the authorization_code grant for code with an OAuth error.
func (p *FakeProvider) FailCode(code string, status int, errorCode string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byCode[code] = tokenReply{status: status, body: map[string]any{
		"error":             errorCode,
		"error_description": "rejected by fake provider",
	}}
}

// FailAccounts makes the account listing answer with status.
func (p *FakeProvider) FailAccounts(status int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accountsStatus = status
	p.accountsBody = `{"errors":[{"title":"fake failure"}]}`
}

func (p *FakeProvider) TokenRequests() []TokenRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]TokenRequest(nil), p.tokenRequests...)
}

// AccountBearers lists the bearer token of every accounts call, in order.
func (p *FakeProvider) AccountBearers() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.accountBearers...)
}

func (p *FakeProvider) token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	id, secret, _ := r.BasicAuth()
	req := TokenRequest{
		GrantType:     r.PostForm.Get("grant_type"),
		Code:          r.PostForm.Get("code"),
		RedirectURI:   r.PostForm.Get("redirect_uri"),
		RefreshToken:  r.PostForm.Get("refresh_token"),
		ClientID:      id,
		ClientSecret:  secret,
		Authorization: r.Header.Get("Authorization"),
		RawBody:       r.PostForm.Encode(),
	}

	p.mu.Lock()
	p.tokenRequests = append(p.tokenRequests, req)
	var reply tokenReply
	var ok bool
	switch req.GrantType {
	case "authorization_code":
		reply, ok = p.byCode[req.Code]
	case "refresh_token":
		reply, ok = p.byRefresh[req.RefreshToken]
	}
	p.mu.Unlock()

	if !ok {
		reply = tokenReply{status: http.StatusBadRequest, body: map[string]any{"error": "invalid_grant"}}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(reply.status)
	_ = json.NewEncoder(w).Encode(reply.body)
}

func (p *FakeProvider) accounts(w http.ResponseWriter, r *http.Request) {
	bearer := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

	p.mu.Lock()
	p.accountBearers = append(p.accountBearers, bearer)
	status, body := p.accountsStatus, p.accountsBody
	p.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func tokenBody(accessToken, refreshToken string) map[string]any {
	body := map[string]any{
		"access_token": accessToken,
		"token_type":   "Bearer",
		"expires_in":   1800,
		"scope":        "api",
	}
	if refreshToken != "" {
		body["refresh_token"] = refreshToken
	}
	return body
}
