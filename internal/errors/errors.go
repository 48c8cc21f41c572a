package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Common error types for the broker authorization flow
var (
	// Configuration errors
	ErrMissingConfig = errors.New("missing required configuration")
	ErrInvalidConfig = errors.New("invalid configuration")

	// Token errors
	ErrAuthExchange   = errors.New("token exchange failed")
	ErrNoRefreshToken = errors.New("no refresh token available")
	ErrNoAccessToken  = errors.New("no access token available")

	// Authorization code errors
	ErrCodeAlreadyRecorded = errors.New("authorization code already recorded")
	ErrMissingCode         = errors.New("missing authorization code")

	// Consent flow errors
	ErrConsentFlow     = errors.New("consent flow failed")
	ErrPageWaitTimeout = errors.New("timed out waiting for page element")

	// Upstream API errors
	ErrUpstreamAPI = errors.New("upstream api call failed")
)

// ConfigError lists every required configuration value that was absent or invalid.
type ConfigError struct {
	Missing []string
	Invalid []string
}

func (e *ConfigError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid: "+strings.Join(e.Invalid, ", "))
	}
	return "configuration error (" + strings.Join(parts, "; ") + ")"
}

func (e *ConfigError) Unwrap() error {
	if len(e.Missing) > 0 {
		return ErrMissingConfig
	}
	return ErrInvalidConfig
}

// AuthExchangeError carries the upstream detail of a failed token endpoint call.
type AuthExchangeError struct {
	GrantType   string
	StatusCode  int
	ErrorCode   string
	Description string
	Body        string
	Err         error
}

func (e *AuthExchangeError) Error() string {
	msg := fmt.Sprintf("token exchange (%s) failed", e.GrantType)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.ErrorCode != "" {
		msg += ": " + e.ErrorCode
		if e.Description != "" {
			msg += " - " + e.Description
		}
	}
	if e.Err != nil && e.StatusCode == 0 {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AuthExchangeError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrAuthExchange}
	}
	return []error{ErrAuthExchange, e.Err}
}

// ConsentFlowError records the consent page state at which the browser flow stopped.
type ConsentFlowError struct {
	State string
	Err   error
}

func (e *ConsentFlowError) Error() string {
	return fmt.Sprintf("consent flow failed at %s: %v", e.State, e.Err)
}

func (e *ConsentFlowError) Unwrap() []error {
	return []error{ErrConsentFlow, e.Err}
}

// UpstreamAPIError is returned by broker API calls that answer with a non-success status.
type UpstreamAPIError struct {
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamAPIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *UpstreamAPIError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUpstreamAPI}
	}
	return []error{ErrUpstreamAPI, e.Err}
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
