package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	defaultAccessTTL  = time.Hour
	defaultRefreshTTL = 7 * 24 * time.Hour

	bearerPrefix = "Bearer "
)

// Service implements the login flow, the token gate and refresh-token
// revocation on top of a Repository. It holds no mutable state beyond the
// process-wide signing secret, so one instance serves concurrent requests.
type Service struct {
	repo       Repository
	secret     []byte
	now        func() time.Time
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// Option configures Service behavior.
type Option func(*Service)

// WithClock overrides the time source. Useful for tests.
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.accessTTL = ttl
		}
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
	}
}

// NewService constructs a Service. The signing secret is required; there is
// deliberately no fallback value.
func NewService(repo Repository, secret string, opts ...Option) (*Service, error) {
	if repo == nil {
		return nil, errors.New("auth: repository is required")
	}
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: signing secret is required")
	}
	s := &Service{
		repo:       repo,
		secret:     []byte(secret),
		now:        time.Now,
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Session is the successful result of Login.
type Session struct {
	User   *User
	Store  *Store
	Tokens TokenPair
}

// Login verifies credentials and mints a token pair. Unknown usernames and
// wrong passwords produce the same ErrInvalidCredentials so the response
// never reveals which of the two was wrong. Subscription and store gates are
// checked before the password, in the same order as Authenticate.
func (s *Service) Login(ctx context.Context, username, password string) (Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Session{}, ErrInvalidCredentials
	}
	user, store, err := s.repo.FindActiveUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("load user: %w", err)
	}
	if err := s.checkSubscription(user, store); err != nil {
		return Session{}, err
	}
	ok, err := VerifyPassword(user.PasswordHash, password)
	if err != nil {
		return Session{}, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return Session{}, ErrInvalidCredentials
	}

	now := s.now().UTC()
	access, accessExp, err := s.signAccessToken(user, now)
	if err != nil {
		return Session{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, refreshExp, err := s.signRefreshToken(user.ID, now)
	if err != nil {
		return Session{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return Session{
		User:  user,
		Store: store,
		Tokens: TokenPair{
			AccessToken:      access,
			RefreshToken:     refresh,
			AccessExpiresAt:  accessExp,
			RefreshExpiresAt: refreshExp,
		},
	}, nil
}

// Refreshed is the successful result of Refresh. User and Store reflect
// current storage state, not the state at original login.
type Refreshed struct {
	AccessToken string
	ExpiresAt   time.Time
	User        *User
	Store       *Store
}

// Refresh exchanges a refresh token for a fresh access token. The refresh
// token is only trusted for identity continuity: role, permissions and
// subscription state are re-derived from storage, so a role change or
// downgrade takes effect here without forcing logout. Refresh tokens are not
// rotated on use; concurrent refreshes with the same token are safe and
// multiple access tokens may coexist.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Refreshed, error) {
	claims, err := s.parseRefreshToken(refreshToken)
	if err != nil {
		return Refreshed{}, err
	}
	revoked, err := s.repo.RefreshTokenRevoked(ctx, claims.ID)
	if err != nil {
		return Refreshed{}, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return Refreshed{}, ErrRefreshRevoked
	}
	user, store, err := s.repo.FindActiveUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Refreshed{}, ErrUserNotFound
		}
		return Refreshed{}, fmt.Errorf("load user: %w", err)
	}
	if err := s.checkSubscription(user, store); err != nil {
		return Refreshed{}, err
	}
	access, exp, err := s.signAccessToken(user, s.now().UTC())
	if err != nil {
		return Refreshed{}, fmt.Errorf("sign access token: %w", err)
	}
	return Refreshed{AccessToken: access, ExpiresAt: exp, User: user, Store: store}, nil
}

// Logout revokes the presented refresh token server-side. The denylist row
// carries the token's natural expiry so it can be purged once the token would
// have died anyway.
func (s *Service) Logout(ctx context.Context, refreshToken string) (Identity, error) {
	claims, err := s.parseRefreshToken(refreshToken)
	if err != nil {
		return Identity{}, err
	}
	user, _, err := s.repo.FindActiveUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Identity{}, ErrUserNotFound
		}
		return Identity{}, fmt.Errorf("load user: %w", err)
	}
	rev := &RevokedToken{
		JTI:       claims.ID,
		UserID:    user.ID,
		ExpiresAt: claims.ExpiresAt.Time,
		RevokedAt: s.now().UTC(),
	}
	if err := s.repo.RevokeRefreshToken(ctx, rev); err != nil {
		return Identity{}, fmt.Errorf("revoke refresh token: %w", err)
	}
	return identityOf(user), nil
}

// Authenticate is the gate every protected request passes through. It
// verifies the bearer access token cryptographically, then re-reads the user
// and store so deactivation and subscription changes take effect before the
// token's natural expiry.
func (s *Service) Authenticate(ctx context.Context, bearerHeader string) (Identity, error) {
	token, err := extractBearerToken(bearerHeader)
	if err != nil {
		return Identity{}, err
	}
	claims, err := s.parseAccessToken(token)
	if err != nil {
		return Identity{}, err
	}
	user, store, err := s.repo.FindActiveUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Identity{}, ErrUserNotFound
		}
		// Storage trouble must never turn into a silent allow or a 401 the
		// client would "fix" by logging in again.
		return Identity{}, fmt.Errorf("load user: %w", err)
	}
	if err := s.checkSubscription(user, store); err != nil {
		return Identity{}, err
	}
	return identityOf(user), nil
}

// Introspect returns the current user and store projection for a valid
// access token. Like refresh, it reads current storage state rather than
// echoing token claims.
func (s *Service) Introspect(ctx context.Context, bearerHeader string) (*User, *Store, error) {
	token, err := extractBearerToken(bearerHeader)
	if err != nil {
		return nil, nil, err
	}
	claims, err := s.parseAccessToken(token)
	if err != nil {
		return nil, nil, err
	}
	user, store, err := s.repo.FindActiveUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, fmt.Errorf("load user: %w", err)
	}
	return user, store, nil
}

// PurgeRevoked drops denylist rows whose tokens have expired on their own.
func (s *Service) PurgeRevoked(ctx context.Context) (int64, error) {
	return s.repo.PurgeRevokedTokens(ctx, s.now().UTC())
}

// checkSubscription applies the expiry gates in their fixed order: user
// subscription, store subscription, store active flag. The order is part of
// the contract; clients rely on deterministic error messages.
func (s *Service) checkSubscription(user *User, store *Store) error {
	now := s.now().UTC()
	if user.SubscriptionExpiresAt != nil && user.SubscriptionExpiresAt.Before(now) {
		return ErrUserSubscriptionExpired
	}
	if store.SubscriptionExpiresAt != nil && store.SubscriptionExpiresAt.Before(now) {
		return ErrStoreSubscriptionExpired
	}
	if !store.Active {
		return ErrStoreInactive
	}
	return nil
}

func identityOf(user *User) Identity {
	return Identity{
		UserID:      user.ID,
		StoreID:     user.StoreID,
		Username:    user.Username,
		Role:        user.Role,
		Permissions: user.Permissions,
		FullName:    user.FullName,
	}
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMissingToken
	}
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", ErrMissingToken
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}
