package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"text/template"

	"github.com/go-rod/rod/lib/launcher"
)

// ConsentVariant picks which post-login page the fake consent site shows.
type ConsentVariant string

const (
	TermsVariant  ConsentVariant = "terms"
	MobileVariant ConsentVariant = "mobile"
)

// Credentials is one login form submission.
type Credentials struct {
	LoginID  string
	Password string
}

// ConsentSite serves HTML versions of the brokerage consent screens. Post-login
// markers render late, the account checkbox ignores its first click, and the
// confirmation page sends the browser to the callback with the configured code.
type ConsentSite struct {
	Server *httptest.Server

	variant ConsentVariant
	code    string

	mu       sync.Mutex
	callback string
	logins   []Credentials
	visited  []string
	received []string
}

func NewConsentSite(variant ConsentVariant, code string) *ConsentSite {
	s := &ConsentSite{variant: variant, code: code}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /authorize", s.page(loginPage))
	mux.HandleFunc("POST /login", s.login)
	mux.HandleFunc("GET /terms", s.page(termsPage))
	mux.HandleFunc("GET /mobile", s.page(mobilePage))
	mux.HandleFunc("GET /accounts", s.page(accountsPage))
	mux.HandleFunc("GET /confirm", s.confirm)
	mux.HandleFunc("GET /callback", s.ownCallback)
	s.Server = httptest.NewServer(mux)
	s.callback = s.Server.URL + "/callback"
	return s
}

func (s *ConsentSite) Close() {
	s.Server.Close()
}

func (s *ConsentSite) URL() string {
	return s.Server.URL
}

func (s *ConsentSite) AuthorizeURL() string {
	return s.Server.URL + "/authorize"
}

// SetCallback points the confirmation page at url instead of the site's own /callback.
func (s *ConsentSite) SetCallback(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callback = url
}

func (s *ConsentSite) Logins() []Credentials {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Credentials(nil), s.logins...)
}

// Visited lists the paths of every page served, in order.
func (s *ConsentSite) Visited() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.visited...)
}

// ReceivedCodes lists the codes delivered to the site's own /callback.
func (s *ConsentSite) ReceivedCodes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.received...)
}

func (s *ConsentSite) visit(r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visited = append(s.visited, r.URL.Path)
}

func (s *ConsentSite) page(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.visit(r)
		writeHTML(w, body)
	}
}

func (s *ConsentSite) login(w http.ResponseWriter, r *http.Request) {
	s.visit(r)
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.logins = append(s.logins, Credentials{LoginID: r.PostForm.Get("login"), Password: r.PostForm.Get("password")})
	s.mu.Unlock()
	http.Redirect(w, r, "/"+string(s.variant), http.StatusSeeOther)
}

func (s *ConsentSite) confirm(w http.ResponseWriter, r *http.Request) {
	s.visit(r)
	s.mu.Lock()
	target := s.callback + "?code=" + s.code
	s.mu.Unlock()
	writeHTML(w, fmt.Sprintf(confirmPage, template.JSEscapeString(target)))
}

func (s *ConsentSite) ownCallback(w http.ResponseWriter, r *http.Request) {
	s.visit(r)
	s.mu.Lock()
	s.received = append(s.received, r.URL.Query().Get("code"))
	s.mu.Unlock()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = fmt.Fprintln(w, "Authorization complete.")
}

func writeHTML(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = fmt.Fprint(w, "<!DOCTYPE html><html><head><title>Consent</title></head><body>"+body+"</body></html>")
}

// BrowserBin returns a local Chromium, skipping the test when none is installed.
func BrowserBin(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("browser tests disabled in short mode")
	}
	bin, ok := launcher.LookPath()
	if !ok {
		t.Skip("no Chromium found")
	}
	return bin
}

const loginPage = `
<form action="/login" method="post">
  <input id="loginIdInput" name="login" type="text">
  <input id="passwordInput" name="password" type="password">
  <button id="btnLogin" type="submit">Log in</button>
</form>`

// renderLate injects markup after a delay, like the client-rendered post-login pages.
const renderLate = `
<div id="root"></div>
<script>
setTimeout(function () {
  document.getElementById("root").innerHTML = document.getElementById("late").innerHTML;
}, 300);
</script>`

const termsPage = `
<template id="late">
  <div style="height: 3000px">Terms and conditions</div>
  <input type="checkbox" id="acceptTerms">
  <button id="submit-btn" onclick="if (document.getElementById('acceptTerms').checked) { document.getElementById('modal').style.display = 'block'; }">Accept</button>
  <div id="modal" style="display: none">
    <button id="agree-modal-btn-" onclick="location.href = '/accounts'">Agree</button>
  </div>
</template>` + renderLate

const mobilePage = `
<template id="late">
  <button id="mobile_approve" onclick="this.disabled = true">Approve on my mobile device</button>
  <div id="remember-device-yes-content" onclick="this.dataset.remember = 'yes'">Yes, remember this device</div>
  <button id="reveal" onclick="document.getElementById('terms').style.display = 'block'">  Continue  </button>
  <section id="terms" style="display: none">
    <input type="checkbox" id="acceptTerms">
    <button id="submit-btn" onclick="submitTerms()">Accept</button>
    <div id="modal" style="display: none">
      <button id="agree-modal-btn-" onclick="window.agreed = true; document.getElementById('modal').style.display = 'none'">Agree</button>
    </div>
  </section>
</template>
<script>
function submitTerms() {
  if (window.agreed) { location.href = '/accounts'; return; }
  if (document.getElementById('acceptTerms').checked) { document.getElementById('modal').style.display = 'block'; }
}
</script>` + renderLate

const accountsPage = `
<input type="checkbox" id="account-12345678" onclick="if (!window.armed) { window.armed = true; event.preventDefault(); }">
<label for="account-12345678">Brokerage ...5678</label>
<button id="submit-btn" onclick="if (document.getElementById('account-12345678').checked) { location.href = '/confirm'; }">Continue</button>`

const confirmPage = `
<p>You have authorized access.</p>
<button id="cancel-btn" onclick="location.href = '%s'">Done</button>`
