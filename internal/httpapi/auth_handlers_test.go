package httpapi

import (
	"net/http"
	"testing"

	"daftari.app/internal/auth"
)

func TestLoginEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.seedDefault(t)

	rec := env.do(t, http.MethodPost, "/api/auth/login", "",
		map[string]string{"username": "owner", "password": testPassword})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success bool `json:"success"`
		User    struct {
			ID        string `json:"id"`
			Username  string `json:"username"`
			Role      string `json:"role"`
			StoreID   string `json:"storeId"`
			StoreName string `json:"storeName"`
		} `json:"user"`
		Tokens struct {
			AccessToken  string `json:"accessToken"`
			RefreshToken string `json:"refreshToken"`
		} `json:"tokens"`
	}
	decodeBody(t, rec, &resp)
	if !resp.Success {
		t.Fatal("expected success=true")
	}
	if resp.User.Username != "owner" || resp.User.Role != "store_owner" {
		t.Fatalf("unexpected user projection: %+v", resp.User)
	}
	if resp.User.StoreID != "store-1" || resp.User.StoreName != "Corner Market" {
		t.Fatalf("store not projected: %+v", resp.User)
	}
	if resp.Tokens.AccessToken == "" || resp.Tokens.RefreshToken == "" {
		t.Fatal("expected both tokens")
	}

	entry := env.sink.last(t)
	if entry.Action != "login" || entry.UserID != "user-owner" {
		t.Fatalf("unexpected audit entry: %+v", entry)
	}
}

func TestLoginValidation(t *testing.T) {
	env := newTestEnv(t)
	env.seedDefault(t)

	cases := []struct {
		name string
		body any
		code int
		msg  string
	}{
		{"empty body", map[string]string{}, http.StatusBadRequest, "username and password are required"},
		{"missing password", map[string]string{"username": "owner"}, http.StatusBadRequest, "username and password are required"},
		{"unknown user", map[string]string{"username": "ghost", "password": testPassword}, http.StatusUnauthorized, "invalid username or password"},
		{"wrong password", map[string]string{"username": "owner", "password": "nope"}, http.StatusUnauthorized, "invalid username or password"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/auth/login", "", tc.body)
			if rec.Code != tc.code {
				t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
			}
			if got := errorMessage(t, rec); got != tc.msg {
				t.Fatalf("error %q, want %q", got, tc.msg)
			}
		})
	}
}

func TestLoginInactiveStore(t *testing.T) {
	env := newTestEnv(t)
	env.addStore("store-1", "Closed Shop", false)
	env.addUser(t, "user-1", "store-1", "alice", auth.RoleManager, nil)

	rec := env.do(t, http.MethodPost, "/api/auth/login", "",
		map[string]string{"username": "alice", "password": testPassword})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	if got := errorMessage(t, rec); got != "store is inactive" {
		t.Fatalf("error %q", got)
	}
}

func TestRefreshEndpointReflectsRoleChange(t *testing.T) {
	env := newTestEnv(t)
	env.seedDefault(t)
	_, refresh := env.login(t, "viewer")

	env.repo.mu.Lock()
	env.repo.users["user-viewer"].Role = auth.RoleManager
	env.repo.mu.Unlock()

	rec := env.do(t, http.MethodPost, "/api/auth/token", "",
		map[string]string{"refreshToken": refresh})
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Success     bool   `json:"success"`
		AccessToken string `json:"accessToken"`
		User        struct {
			Role string `json:"role"`
		} `json:"user"`
	}
	decodeBody(t, rec, &resp)
	if !resp.Success || resp.AccessToken == "" {
		t.Fatalf("unexpected response: %s", rec.Body.String())
	}
	if resp.User.Role != "manager" {
		t.Fatalf("expected refreshed role manager, got %q", resp.User.Role)
	}

	// The fresh access token carries the new role through the gate.
	created := env.do(t, http.MethodPost, "/api/partners", resp.AccessToken,
		map[string]any{"name": "Vendor A", "kind": "vendor"})
	if created.Code != http.StatusCreated {
		t.Fatalf("create with refreshed token: status %d body %s", created.Code, created.Body.String())
	}
}

func TestIntrospectEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.seedDefault(t)
	access, _ := env.login(t, "owner")

	rec := env.do(t, http.MethodGet, "/api/auth/token", access, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		User struct {
			Username string `json:"username"`
			StoreID  string `json:"storeId"`
		} `json:"user"`
	}
	decodeBody(t, rec, &resp)
	if resp.User.Username != "owner" || resp.User.StoreID != "store-1" {
		t.Fatalf("unexpected projection: %+v", resp.User)
	}
}

func TestLogoutRevokesRefresh(t *testing.T) {
	env := newTestEnv(t)
	env.seedDefault(t)
	access, refresh := env.login(t, "owner")

	rec := env.do(t, http.MethodPost, "/api/auth/logout", "",
		map[string]string{"refreshToken": refresh})
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: status %d body %s", rec.Code, rec.Body.String())
	}
	entry := env.sink.last(t)
	if entry.Action != "logout" {
		t.Fatalf("unexpected audit entry: %+v", entry)
	}

	// Refreshing with the revoked token is rejected.
	rec = env.do(t, http.MethodPost, "/api/auth/token", "",
		map[string]string{"refreshToken": refresh})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("refresh after logout: status %d body %s", rec.Code, rec.Body.String())
	}

	// The access token survives until natural expiry.
	rec = env.do(t, http.MethodGet, "/api/partners", access, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("access after logout: status %d body %s", rec.Code, rec.Body.String())
	}
}

func TestTokenEndpointMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)
	env.seedDefault(t)

	rec := env.do(t, http.MethodDelete, "/api/auth/token", "", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
}
