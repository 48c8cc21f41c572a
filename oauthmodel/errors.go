package oauthmodel

import "errors"

var (
	ErrInvalidRedirectUri = errors.New("invalid or no redirect uri")
	ErrMissingClientID    = errors.New("missing client id")
)
