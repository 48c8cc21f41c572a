package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	apperrors "github.com/jrsteele09/go-broker-auth/internal/errors"
	"github.com/jrsteele09/go-broker-auth/internal/logging"
	"github.com/jrsteele09/go-broker-auth/oauthmodel"
)

var errCallbackAborted = errors.New("callback handler aborted before the exchange completed")

// OAuthCallbackHandler receives the provider redirect. The first non-empty code is
// recorded and exchanged; any later code is refused with 409.
func (s *Server) OAuthCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := oauthmodel.ParseCallback(r.URL.Query())

		if params.Error != "" {
			s.logger.Warn().
				Str("error", params.Error).
				Str("error_description", params.ErrorDescription).
				Msg("Provider returned an authorization error")
			writeText(w, http.StatusBadRequest, fmt.Sprintf("Authorization failed: %s - %s", params.Error, params.ErrorDescription))
			return
		}

		if params.Code == "" {
			s.logger.Warn().Str("path", r.URL.Path).Msg("Callback without an authorization code")
			writeText(w, http.StatusBadRequest, "Missing authorization code")
			return
		}

		switch s.accept() {
		case stateAccepted:
			s.logger.Warn().Str("code", logging.Redact(params.Code)).Msg("Authorization code already received, ignoring")
			writeText(w, http.StatusConflict, "Authorization code already received")
			return
		case stateClosed:
			writeText(w, http.StatusServiceUnavailable, "Callback listener is closed")
			return
		}

		resolved := false
		defer func() {
			if !resolved {
				s.resolve(outcome{err: errCallbackAborted})
			}
		}()

		if err := s.recorder.RecordCode(params.Code); err != nil {
			s.logger.Err(err).Msg("Failed to record authorization code")
			resolved = true
			s.resolve(outcome{err: err})
			writeText(w, http.StatusConflict, "Authorization code already received")
			return
		}
		s.logger.Info().Str("code", logging.Redact(params.Code)).Msg("Authorization code received")

		// The exchange must finish even if the browser goes away.
		tokens, err := s.exchanger.ExchangeCode(context.WithoutCancel(r.Context()), params.Code)
		resolved = true
		s.resolve(outcome{tokens: tokens, err: err})

		if err != nil {
			var exErr *apperrors.AuthExchangeError
			if apperrors.As(err, &exErr) && exErr.StatusCode != 0 {
				s.logger.Error().Int("upstream_status", exErr.StatusCode).Msg("Token endpoint rejected the code")
			}
			writeText(w, http.StatusBadGateway, "Token exchange failed")
			return
		}
		writeText(w, http.StatusOK, "Authorization complete. You can close this window.")
	}
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = fmt.Fprintln(w, body)
}
