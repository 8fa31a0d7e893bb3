package httpapi

import (
	"net/http"
	"strings"

	"daftari.app/internal/auth"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// userProjection is the client-facing view of a user, shared by login,
// refresh and introspection.
type userProjection struct {
	ID          string             `json:"id"`
	Username    string             `json:"username"`
	FullName    string             `json:"fullName"`
	Role        auth.Role          `json:"role"`
	Permissions auth.PermissionMap `json:"permissions,omitempty"`
	Locale      string             `json:"locale"`
	DarkMode    bool               `json:"darkMode"`
	StoreID     string             `json:"storeId"`
	StoreName   string             `json:"storeName"`
}

func projectUser(u *auth.User, s *auth.Store) userProjection {
	return userProjection{
		ID:          u.ID,
		Username:    u.Username,
		FullName:    u.FullName,
		Role:        u.Role,
		Permissions: u.Permissions,
		Locale:      u.Locale,
		DarkMode:    u.DarkMode,
		StoreID:     u.StoreID,
		StoreName:   s.Name,
	}
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "username and password are required")
		return
	}

	session, err := a.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}

	identity := auth.Identity{
		UserID:   session.User.ID,
		StoreID:  session.User.StoreID,
		Username: session.User.Username,
		Role:     session.User.Role,
	}
	a.audit.Record(r.Context(), identity, "login", "user", session.User.ID,
		nil, map[string]string{"username": session.User.Username})

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    projectUser(session.User, session.Store),
		"tokens": map[string]string{
			"accessToken":  session.Tokens.AccessToken,
			"refreshToken": session.Tokens.RefreshToken,
		},
	})
}

// handleToken serves both halves of the token endpoint: POST refreshes an
// access token, GET introspects a bearer token.
func (a *API) handleToken(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.handleRefresh(w, r)
	case http.MethodGet:
		a.handleIntrospect(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		writeError(w, r, http.StatusBadRequest, "refresh token is required")
		return
	}

	refreshed, err := a.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"accessToken": refreshed.AccessToken,
		"user":        projectUser(refreshed.User, refreshed.Store),
	})
}

func (a *API) handleIntrospect(w http.ResponseWriter, r *http.Request) {
	user, store, err := a.auth.Introspect(r.Context(), r.Header.Get(authHeader))
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user": projectUser(user, store),
	})
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		writeError(w, r, http.StatusBadRequest, "refresh token is required")
		return
	}

	identity, err := a.auth.Logout(r.Context(), req.RefreshToken)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	a.audit.Record(r.Context(), identity, "logout", "user", identity.UserID, nil, nil)

	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
