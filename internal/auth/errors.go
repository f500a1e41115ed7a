package auth

import "errors"

var (
	ErrNotFound           = errors.New("auth: not found")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrAccountBlocked     = errors.New("auth: account blocked")
	ErrInvalidToken       = errors.New("auth: invalid token")
	ErrNoRefresher        = errors.New("auth: token refresher is not configured")
)
