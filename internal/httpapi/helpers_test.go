package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"daftari.app/internal/audit"
	"daftari.app/internal/auth"
	"daftari.app/internal/store"
)

// All test users share one password so the argon2 hash is computed once.
const testPassword = "secret123"

var (
	testHashOnce sync.Once
	testHash     string
)

func sharedPasswordHash(t *testing.T) string {
	t.Helper()
	testHashOnce.Do(func() {
		h, err := auth.HashPassword(testPassword)
		if err != nil {
			t.Fatalf("HashPassword: %v", err)
		}
		testHash = h
	})
	return testHash
}

type fakeAuthRepo struct {
	mu      sync.Mutex
	users   map[string]*auth.User
	stores  map[string]*auth.Store
	revoked map[string]bool
}

func newFakeAuthRepo() *fakeAuthRepo {
	return &fakeAuthRepo{
		users:   make(map[string]*auth.User),
		stores:  make(map[string]*auth.Store),
		revoked: make(map[string]bool),
	}
}

func (r *fakeAuthRepo) find(match func(*auth.User) bool) (*auth.User, *auth.Store, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) && u.Active {
			userCopy := *u
			storeCopy := *r.stores[u.StoreID]
			return &userCopy, &storeCopy, nil
		}
	}
	return nil, nil, auth.ErrNotFound
}

func (r *fakeAuthRepo) FindActiveUserByUsername(_ context.Context, username string) (*auth.User, *auth.Store, error) {
	return r.find(func(u *auth.User) bool { return u.Username == username })
}

func (r *fakeAuthRepo) FindActiveUserByID(_ context.Context, id string) (*auth.User, *auth.Store, error) {
	return r.find(func(u *auth.User) bool { return u.ID == id })
}

func (r *fakeAuthRepo) RevokeRefreshToken(_ context.Context, rev *auth.RevokedToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked[rev.JTI] = true
	return nil
}

func (r *fakeAuthRepo) RefreshTokenRevoked(_ context.Context, jti string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.revoked[jti], nil
}

func (r *fakeAuthRepo) PurgeRevokedTokens(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

type fakePartnerStore struct {
	mu       sync.Mutex
	partners map[string]*store.Partner
	seq      int
}

func newFakePartnerStore() *fakePartnerStore {
	return &fakePartnerStore{partners: make(map[string]*store.Partner)}
}

func (s *fakePartnerStore) List(_ context.Context, storeID string, filter store.PartnerFilter) ([]store.Partner, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []store.Partner
	for _, p := range s.partners {
		if p.StoreID != storeID {
			continue
		}
		if filter.Kind != "" && p.Kind != filter.Kind {
			continue
		}
		if filter.Active != nil && p.Active != *filter.Active {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Search)) {
			continue
		}
		matched = append(matched, *p)
	}
	total := len(matched)
	if filter.Offset >= total {
		return nil, total, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

func (s *fakePartnerStore) Get(_ context.Context, storeID, id string) (*store.Partner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.partners[id]
	if !ok || p.StoreID != storeID {
		return nil, store.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (s *fakePartnerStore) Create(_ context.Context, p *store.Partner) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	if p.ID == "" {
		p.ID = fmt.Sprintf("partner-%d", s.seq)
	}
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	copied := *p
	s.partners[p.ID] = &copied
	return nil
}

func (s *fakePartnerStore) Update(_ context.Context, p *store.Partner) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.partners[p.ID]
	if !ok || existing.StoreID != p.StoreID {
		return store.ErrNotFound
	}
	p.UpdatedAt = time.Now().UTC()
	copied := *p
	s.partners[p.ID] = &copied
	return nil
}

func (s *fakePartnerStore) Delete(_ context.Context, storeID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.partners[id]
	if !ok || p.StoreID != storeID {
		return store.ErrNotFound
	}
	delete(s.partners, id)
	return nil
}

type fakeSettingsStore struct {
	mu       sync.Mutex
	settings map[string]*store.Settings
}

func newFakeSettingsStore() *fakeSettingsStore {
	return &fakeSettingsStore{settings: make(map[string]*store.Settings)}
}

func (s *fakeSettingsStore) Get(_ context.Context, storeID string) (*store.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.settings[storeID]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *v
	return &copied, nil
}

func (s *fakeSettingsStore) Put(_ context.Context, v *store.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v.UpdatedAt = time.Now().UTC()
	copied := *v
	s.settings[v.StoreID] = &copied
	return nil
}

type recordingSink struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (s *recordingSink) Append(_ context.Context, entry *audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *recordingSink) last(t *testing.T) audit.Entry {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) == 0 {
		t.Fatal("expected an audit entry")
	}
	return s.entries[len(s.entries)-1]
}

// testEnv wires the full middleware chain around fakes. clock is mutable so
// tests can jump past token expiry.
type testEnv struct {
	handler  http.Handler
	repo     *fakeAuthRepo
	partners *fakePartnerStore
	settings *fakeSettingsStore
	sink     *recordingSink

	mu    sync.Mutex
	clock time.Time
}

func (e *testEnv) now() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clock
}

func (e *testEnv) advance(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clock = e.clock.Add(d)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		repo:     newFakeAuthRepo(),
		partners: newFakePartnerStore(),
		settings: newFakeSettingsStore(),
		sink:     &recordingSink{},
		clock:    time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	svc, err := auth.NewService(env.repo, "httpapi-test-secret", auth.WithClock(env.now))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	api := New(Config{
		Auth:     svc,
		Audit:    audit.NewRecorder(env.sink, audit.WithClock(env.now)),
		Partners: env.partners,
		Settings: env.settings,
		Version:  "test",
	})
	env.handler = api.Handler()
	return env
}

func (e *testEnv) addStore(id, name string, active bool) *auth.Store {
	s := &auth.Store{ID: id, Name: name, Active: active}
	e.repo.mu.Lock()
	e.repo.stores[id] = s
	e.repo.mu.Unlock()
	return s
}

func (e *testEnv) addUser(t *testing.T, id, storeID, username string, role auth.Role, perms auth.PermissionMap) *auth.User {
	t.Helper()
	u := &auth.User{
		ID:           id,
		StoreID:      storeID,
		Username:     username,
		PasswordHash: sharedPasswordHash(t),
		FullName:     "Test " + username,
		Role:         role,
		Permissions:  perms,
		Active:       true,
		Locale:       "ar",
	}
	e.repo.mu.Lock()
	e.repo.users[id] = u
	e.repo.mu.Unlock()
	return u
}

// seedDefault creates one active store with an owner and a viewer.
func (e *testEnv) seedDefault(t *testing.T) {
	t.Helper()
	e.addStore("store-1", "Corner Market", true)
	e.addUser(t, "user-owner", "store-1", "owner", auth.RoleStoreOwner, nil)
	e.addUser(t, "user-viewer", "store-1", "viewer", auth.RoleViewer, nil)
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), target); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

// login performs the full login round trip and returns the token pair.
func (e *testEnv) login(t *testing.T, username string) (access, refresh string) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/auth/login", "",
		map[string]string{"username": username, "password": testPassword})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: status %d body %s", username, rec.Code, rec.Body.String())
	}
	var resp struct {
		Tokens struct {
			AccessToken  string `json:"accessToken"`
			RefreshToken string `json:"refreshToken"`
		} `json:"tokens"`
	}
	decodeBody(t, rec, &resp)
	if resp.Tokens.AccessToken == "" || resp.Tokens.RefreshToken == "" {
		t.Fatalf("login %s: missing tokens in %s", username, rec.Body.String())
	}
	return resp.Tokens.AccessToken, resp.Tokens.RefreshToken
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error string `json:"error"`
	}
	decodeBody(t, rec, &resp)
	return resp.Error
}
