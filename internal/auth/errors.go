package auth

import "errors"

var (
	ErrNotFound     = errors.New("auth: not found")
	ErrDuplicate    = errors.New("auth: username or email already exists")
	ErrInvalidInput = errors.New("auth: invalid input")
	ErrUnauthorized = errors.New("auth: invalid credentials")
)

// ErrInvalidToken indicates the credential failed signature or claim checks.
var ErrInvalidToken = errors.New("invalid token")
