package auth

import (
	"context"
	"time"
)

// Repository describes the persistence operations the auth subsystem needs.
// Lookups return the user joined with its owning store in one round-trip; the
// gate performs exactly one consistent read per request and never caches.
type Repository interface {
	// FindActiveUserByUsername returns an active user and its store.
	// Inactive and unknown usernames are both ErrNotFound.
	FindActiveUserByUsername(ctx context.Context, username string) (*User, *Store, error)
	// FindActiveUserByID returns an active user and its store by user id.
	FindActiveUserByID(ctx context.Context, id string) (*User, *Store, error)

	// RevokeRefreshToken adds a refresh token to the server-side denylist.
	RevokeRefreshToken(ctx context.Context, rev *RevokedToken) error
	// RefreshTokenRevoked reports whether the jti has been revoked.
	RefreshTokenRevoked(ctx context.Context, jti string) (bool, error)
	// PurgeRevokedTokens removes denylist rows whose natural expiry passed.
	PurgeRevokedTokens(ctx context.Context, before time.Time) (int64, error)
}
