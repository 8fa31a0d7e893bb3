package httpapi

import (
	"errors"
	"net/http"

	"daftari.app/internal/auth"
	"daftari.app/internal/obs"
)

const authHeader = "Authorization"

// Paths reachable without a bearer token. Login, refresh and logout validate
// their own credentials; the rest are operational endpoints.
var publicPaths = map[string]bool{
	"/api/auth/login":  true,
	"/api/auth/token":  true,
	"/api/auth/logout": true,
	"/healthz":         true,
	"/readyz":          true,
	"/metrics":         true,
}

// withAuth short-circuits every protected request through the gate before
// any business handler runs. On success the resolved identity is attached to
// the request context.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions || publicPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}
		identity, err := a.auth.Authenticate(r.Context(), r.Header.Get(authHeader))
		if err != nil {
			obs.AuthDecision(authOutcome(err))
			handleAuthError(w, r, err)
			return
		}
		obs.AuthDecision("allowed")
		next.ServeHTTP(w, r.WithContext(auth.ContextWithIdentity(r.Context(), identity)))
	})
}

// requirePermission enforces the resource+action check for the identity the
// gate attached. Returns the identity and false when the response has
// already been written.
func (a *API) requirePermission(w http.ResponseWriter, r *http.Request, resource, action string) (auth.Identity, bool) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, auth.ErrMissingToken.Error())
		return auth.Identity{}, false
	}
	if !auth.Authorize(identity, resource, action) {
		writeError(w, r, http.StatusForbidden, "you do not have permission to perform this action")
		return auth.Identity{}, false
	}
	return identity, true
}

// handleAuthError maps gate failures to the uniform error payload.
// Authentication problems are 401, subscription and store-state problems are
// 403, anything else is an internal error logged with full detail.
func handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrTokenExpired),
		errors.Is(err, auth.ErrTokenInvalid),
		errors.Is(err, auth.ErrRefreshInvalid),
		errors.Is(err, auth.ErrRefreshRevoked),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrUserNotFound):
		writeError(w, r, http.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrUserSubscriptionExpired),
		errors.Is(err, auth.ErrStoreSubscriptionExpired),
		errors.Is(err, auth.ErrStoreInactive):
		writeError(w, r, http.StatusForbidden, err.Error())
	default:
		obs.LogError("authentication error", map[string]any{
			"request_id": RequestIDFromContext(r.Context()),
			"error":      err.Error(),
		})
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func authOutcome(err error) string {
	switch {
	case errors.Is(err, auth.ErrMissingToken):
		return "missing_token"
	case errors.Is(err, auth.ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, auth.ErrTokenInvalid):
		return "token_invalid"
	case errors.Is(err, auth.ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, auth.ErrUserSubscriptionExpired),
		errors.Is(err, auth.ErrStoreSubscriptionExpired):
		return "subscription_expired"
	case errors.Is(err, auth.ErrStoreInactive):
		return "store_inactive"
	default:
		return "error"
	}
}
