package auth

import "errors"

// Every failure of the gate and the login flow maps to one of these values.
// The HTTP layer decides status codes from them; nothing in this package
// knows about HTTP.
var (
	ErrMissingToken       = errors.New("access token is missing")
	ErrTokenExpired       = errors.New("access token has expired")
	ErrTokenInvalid       = errors.New("access token is invalid")
	ErrRefreshInvalid     = errors.New("refresh token is invalid")
	ErrRefreshRevoked     = errors.New("refresh token has been revoked")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserNotFound       = errors.New("user not found or inactive")

	ErrUserSubscriptionExpired  = errors.New("user subscription has expired")
	ErrStoreSubscriptionExpired = errors.New("store subscription has expired")
	ErrStoreInactive            = errors.New("store is inactive")

	// ErrNotFound is returned by Repository implementations for absent rows.
	ErrNotFound = errors.New("auth: not found")
)
