package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"daftari.app/internal/ids"
)

const (
	tokenIssuer      = "daftari"
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// AccessClaims is the access token payload. The snapshot of role and
// permissions is convenient for clients; the gate never trusts it and always
// re-reads storage.
type AccessClaims struct {
	StoreID     string        `json:"store_id"`
	Username    string        `json:"username"`
	Role        Role          `json:"role"`
	Permissions PermissionMap `json:"permissions,omitempty"`
	TokenType   string        `json:"token_type"`
	jwt.RegisteredClaims
}

// RefreshClaims carries only identity continuity. Role and permissions are
// re-derived from storage on every refresh so downgrades take effect without
// forcing logout.
type RefreshClaims struct {
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

func (s *Service) signAccessToken(user *User, now time.Time) (string, time.Time, error) {
	exp := now.Add(s.accessTTL)
	claims := AccessClaims{
		StoreID:     user.StoreID,
		Username:    user.Username,
		Role:        user.Role,
		Permissions: user.Permissions,
		TokenType:   tokenTypeAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        ids.New(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (s *Service) signRefreshToken(userID string, now time.Time) (string, time.Time, error) {
	exp := now.Add(s.refreshTTL)
	claims := RefreshClaims{
		TokenType: tokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        ids.New(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (s *Service) parseAccessToken(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := s.parseToken(token, claims); err != nil {
		return nil, err
	}
	if claims.TokenType != tokenTypeAccess || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func (s *Service) parseRefreshToken(token string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := s.parseToken(token, claims); err != nil {
		return nil, ErrRefreshInvalid
	}
	if claims.TokenType != tokenTypeRefresh || claims.Subject == "" {
		return nil, ErrRefreshInvalid
	}
	return claims, nil
}

func (s *Service) parseToken(token string, claims jwt.Claims) error {
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrTokenInvalid
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithIssuer(tokenIssuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrTokenInvalid
	}
	if !parsed.Valid {
		return ErrTokenInvalid
	}
	return nil
}
