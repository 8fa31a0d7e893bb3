package httpapi

import (
	"context"
	"database/sql"
	"net/http"

	"daftari.app/internal/audit"
	"daftari.app/internal/auth"
	"daftari.app/internal/obs"
	"daftari.app/internal/store"
)

// ReadyProbe reports readiness, typically by pinging the database.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Config carries the collaborators the HTTP layer needs.
type Config struct {
	Auth           *auth.Service
	Audit          *audit.Recorder
	Partners       store.PartnerStore
	Settings       store.SettingsStore
	ReadyProbe     ReadyProbe
	Version        string
	AllowedOrigins []string
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	auth       *auth.Service
	audit      *audit.Recorder
	partners   store.PartnerStore
	settings   store.SettingsStore
	readyProbe ReadyProbe
	version    string
	cors       func(http.Handler) http.Handler
}

func New(cfg Config) *API {
	a := &API{
		mux:        http.NewServeMux(),
		auth:       cfg.Auth,
		audit:      cfg.Audit,
		partners:   cfg.Partners,
		settings:   cfg.Settings,
		readyProbe: cfg.ReadyProbe,
		version:    cfg.Version,
		cors:       CORS(cfg.AllowedOrigins),
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/api/auth/login", a.handleLogin)
	a.mux.HandleFunc("/api/auth/token", a.handleToken)
	a.mux.HandleFunc("/api/auth/logout", a.handleLogout)

	a.mux.HandleFunc("/api/partners", a.handlePartners)
	a.mux.HandleFunc("/api/partners/", a.handlePartnerByID)
	a.mux.HandleFunc("/api/settings", a.handleSettings)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "resource not found")
	})

	return a
}

// Handler assembles the middleware chain around the mux.
func (a *API) Handler() http.Handler {
	h := a.withAuth(a.mux)
	h = withClientIP(h)
	h = obs.Instrument(h)
	h = LoggingJSON(h)
	h = RateLimit(h, 20, 10)
	h = MaxBodyBytes(h, 1<<20)
	h = a.cors(h)
	h = SecurityHeaders(h)
	h = RequestID(h)
	return h
}

// withClientIP records the source address for audit entries written further
// down the chain.
func withClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := audit.WithClientIP(r.Context(), clientIP(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "daftari-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}
