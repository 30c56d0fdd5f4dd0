package auth_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/adsuite/backoffice/internal/auth"
	"github.com/adsuite/backoffice/internal/platform/httpx"
	"github.com/adsuite/backoffice/internal/shared"
	_ "github.com/adsuite/backoffice/testing"
)

type stubRepo struct {
	mu       sync.Mutex
	users    map[string]*auth.User
	sessions map[string]auth.SessionRecord
	findErr  error
}

func newStubRepo(users ...*auth.User) *stubRepo {
	repo := &stubRepo{users: map[string]*auth.User{}, sessions: map[string]auth.SessionRecord{}}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (s *stubRepo) FindByUsername(ctx context.Context, username string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *stubRepo) FindByID(ctx context.Context, id string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	u, ok := s.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, rec auth.SessionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[rec.ID] = rec
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *stubRepo) PurgeExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, rec := range s.sessions {
		if rec.ExpiresAt.Before(before) {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

type fixture struct {
	mr      *miniredis.Miniredis
	repo    *stubRepo
	store   *shared.SessionStore
	service *auth.Service
	router  http.Handler
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newStubRepo(
		&auth.User{ID: "u-1", Username: "dina", PasswordHash: hashed(t, "correct-horse"), Role: shared.RoleManager, IsActive: true},
		&auth.User{ID: "u-2", Username: "off", PasswordHash: hashed(t, "correct-horse"), Role: shared.RoleUser, IsActive: false},
	)
	store := shared.NewSessionStore(client, "test_session:", time.Hour)
	service := auth.NewService(repo, store, nil)

	r := chi.NewRouter()
	r.Route("/api/auth", auth.NewHandler(nil, service, 0).MountRoutes)
	return fixture{mr: mr, repo: repo, store: store, service: service, router: r}
}

func (f fixture) do(method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func messageOf(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body httpx.MessageBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body.Message
}

func TestLoginMeLogout(t *testing.T) {
	f := newFixture(t)

	rr := f.do(http.MethodPost, "/api/auth/login", "", `{"username":"dina","password":"correct-horse"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var result auth.LoginResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	require.NotEmpty(t, result.Token)
	assert.Equal(t, shared.RoleManager, result.User.Role)
	assert.Len(t, f.repo.sessions, 1)

	rr = f.do(http.MethodGet, "/api/auth/me", result.Token, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var me shared.Principal
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &me))
	assert.Equal(t, shared.Principal{ID: "u-1", Username: "dina", Role: shared.RoleManager}, me)

	rr = f.do(http.MethodPost, "/api/auth/logout", result.Token, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, f.repo.sessions)

	rr = f.do(http.MethodGet, "/api/auth/me", result.Token, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Invalid or expired session", messageOf(t, rr))
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newFixture(t)

	rr := f.do(http.MethodPost, "/api/auth/login", "", `{"username":"dina","password":"wrong-password"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = f.do(http.MethodPost, "/api/auth/login", "", `{"username":"off","password":"correct-horse"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = f.do(http.MethodPost, "/api/auth/login", "", `{"username":"dina"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestMissingAndExpiredTokensShareShape(t *testing.T) {
	f := newFixture(t)

	missing := f.do(http.MethodGet, "/api/auth/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, missing.Code)
	assert.Equal(t, "Unauthorized", messageOf(t, missing))

	result, err := f.service.Login(context.Background(), "dina", "correct-horse", "", "")
	require.NoError(t, err)
	f.mr.FastForward(2 * time.Hour)

	expired := f.do(http.MethodGet, "/api/auth/me", result.Token, "")
	assert.Equal(t, http.StatusUnauthorized, expired.Code)
	assert.Equal(t, "Invalid or expired session", messageOf(t, expired))

	var a, b map[string]any
	require.NoError(t, json.Unmarshal(missing.Body.Bytes(), &a))
	require.NoError(t, json.Unmarshal(expired.Body.Bytes(), &b))
	assert.Len(t, a, 1)
	assert.Len(t, b, 1)
	assert.Contains(t, b, "message")
}

func TestResolve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.Resolve(ctx, "")
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)

	_, err = f.service.Resolve(ctx, "never-issued")
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)

	sess, err := f.store.Create(ctx, "deleted-user")
	require.NoError(t, err)
	_, err = f.service.Resolve(ctx, sess.Token)
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)

	sess, err = f.store.Create(ctx, "u-2")
	require.NoError(t, err)
	_, err = f.service.Resolve(ctx, sess.Token)
	assert.ErrorIs(t, err, shared.ErrUnauthenticated)

	sess, err = f.store.Create(ctx, "u-1")
	require.NoError(t, err)
	p, err := f.service.Resolve(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, "dina", p.Username)
}

func TestResolveStoreFailureIsInternal(t *testing.T) {
	f := newFixture(t)
	sess, err := f.store.Create(context.Background(), "u-1")
	require.NoError(t, err)
	f.repo.findErr = errors.New("pg down")

	_, err = f.service.Resolve(context.Background(), sess.Token)
	require.Error(t, err)
	assert.False(t, errors.Is(err, shared.ErrUnauthenticated))

	rr := f.do(http.MethodGet, "/api/auth/me", sess.Token, "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"":               "",
		"Bearer abc":     "abc",
		"bearer  abc ":   "abc",
		"Basic dXNlcjpw": "",
		"Bearer":         "",
		"Token abc":      "",
	}
	for header, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		assert.Equal(t, want, auth.BearerToken(req), header)
	}
}

func TestPurgeExpiredSessions(t *testing.T) {
	f := newFixture(t)
	now := time.Now()
	require.NoError(t, f.repo.CreateSession(context.Background(), auth.SessionRecord{ID: "old", UserID: "u-1", ExpiresAt: now.Add(-time.Hour)}))
	require.NoError(t, f.repo.CreateSession(context.Background(), auth.SessionRecord{ID: "new", UserID: "u-1", ExpiresAt: now.Add(time.Hour)}))

	n, err := f.service.PurgeExpiredSessions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Contains(t, f.repo.sessions, "new")
}
