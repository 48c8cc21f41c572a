package auth

import "errors"

var (
	MissingComponentErr = errors.New("missing authorization component")
)
