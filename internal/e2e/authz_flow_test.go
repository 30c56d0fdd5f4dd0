package e2e

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/adsuite/backoffice/internal/app"
	"github.com/adsuite/backoffice/internal/auth"
	"github.com/adsuite/backoffice/internal/campaigns"
	"github.com/adsuite/backoffice/internal/observability"
	"github.com/adsuite/backoffice/internal/ownership"
	"github.com/adsuite/backoffice/internal/platform/httpx"
	"github.com/adsuite/backoffice/internal/rbac"
	"github.com/adsuite/backoffice/internal/shared"
	"github.com/adsuite/backoffice/internal/workreports"
)

const password = "correct-horse-battery"

type accounts struct {
	users map[string]*auth.User
}

func (a accounts) FindByUsername(ctx context.Context, username string) (*auth.User, error) {
	for _, u := range a.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (a accounts) FindByID(ctx context.Context, id string) (*auth.User, error) {
	if u, ok := a.users[id]; ok {
		return u, nil
	}
	return nil, shared.ErrNotFound
}

func (a accounts) CreateSession(ctx context.Context, rec auth.SessionRecord) error { return nil }
func (a accounts) DeleteSession(ctx context.Context, id string) error             { return nil }
func (a accounts) PurgeExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func (a accounts) ClientIDOf(ctx context.Context, userID string) (*string, error) {
	u, ok := a.users[userID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u.ClientID, nil
}

// defaultsStore answers from the seeded role defaults.
type defaultsStore struct{}

func (defaultsStore) FindRolePermission(ctx context.Context, role shared.Role, pageKey string) (rbac.RolePermission, error) {
	for _, p := range rbac.DefaultPages() {
		if p.PageKey == pageKey {
			return rbac.RolePermission{Role: role, PageKey: pageKey, Flags: rbac.DefaultFlags(role, pageKey)}, nil
		}
	}
	return rbac.RolePermission{}, shared.ErrNotFound
}

func (defaultsStore) ListRolePermissionsForRole(ctx context.Context, role shared.Role) ([]rbac.RolePermission, error) {
	return nil, nil
}

type campaignRows struct {
	mu   sync.Mutex
	rows []campaigns.Campaign
}

func (c *campaignRows) List(ctx context.Context, scope ownership.Scope, filter campaigns.ListFilter, page shared.PageRequest) ([]campaigns.Campaign, int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []campaigns.Campaign
	for _, row := range c.rows {
		if scope.Allows(row.ClientID) {
			out = append(out, row)
		}
	}
	return out, len(out), nil
}

func (c *campaignRows) Get(ctx context.Context, id string) (campaigns.Campaign, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, row := range c.rows {
		if row.ID == id {
			return row, nil
		}
	}
	return campaigns.Campaign{}, shared.ErrNotFound
}

func (c *campaignRows) Create(ctx context.Context, in campaigns.Input) (campaigns.Campaign, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	row := campaigns.Campaign{ID: "k-new", ClientID: in.ClientID, Name: in.Name, Status: in.Status}
	c.rows = append(c.rows, row)
	return row, nil
}

func (c *campaignRows) Update(ctx context.Context, id string, in campaigns.Input) (campaigns.Campaign, error) {
	return campaigns.Campaign{ID: id, ClientID: in.ClientID, Name: in.Name}, nil
}

func (c *campaignRows) Delete(ctx context.Context, id string) error { return nil }

type reportRows struct {
	mu      sync.Mutex
	rows    map[string]workreports.Report
	deleted []string
}

func (r *reportRows) List(ctx context.Context, ownerID string, page shared.PageRequest) ([]workreports.Report, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []workreports.Report
	for _, row := range r.rows {
		if ownerID == "" || row.OwnerID == ownerID {
			out = append(out, row)
		}
	}
	return out, len(out), nil
}

func (r *reportRows) Get(ctx context.Context, id string) (workreports.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return workreports.Report{}, shared.ErrNotFound
	}
	return row, nil
}

func (r *reportRows) Create(ctx context.Context, rep workreports.Report) (workreports.Report, error) {
	return rep, nil
}

func (r *reportRows) Update(ctx context.Context, rep workreports.Report) (workreports.Report, error) {
	return rep, nil
}

func (r *reportRows) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, id)
	delete(r.rows, id)
	return nil
}

type stack struct {
	handler http.Handler
	reports *reportRows
}

func strPtr(s string) *string { return &s }

func newStack(t *testing.T) stack {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	users := accounts{users: map[string]*auth.User{}}
	for _, u := range []*auth.User{
		{ID: "C-user", Username: "acme", Role: shared.RoleClient, ClientID: strPtr("C1")},
		{ID: "U1", Username: "una", Role: shared.RoleUser},
		{ID: "U2", Username: "udo", Role: shared.RoleUser},
		{ID: "M1", Username: "mara", Role: shared.RoleManager},
	} {
		u.PasswordHash = string(hash)
		u.IsActive = true
		users.users[u.ID] = u
	}

	logger := slog.Default()
	metrics := observability.NewMetrics()
	sessions := shared.NewSessionStore(client, "e2e:", time.Hour)
	authService := auth.NewService(users, sessions, logger)
	gate := rbac.Middleware{Evaluator: rbac.NewEvaluator(defaultsStore{}), Logger: logger, Metrics: metrics}

	campaignRepo := &campaignRows{rows: []campaigns.Campaign{
		{ID: "k1", ClientID: "C1", Name: "Spring"},
		{ID: "k2", ClientID: "C2", Name: "Rival"},
		{ID: "k3", ClientID: "C1", Name: "Summer"},
	}}
	reports := &reportRows{rows: map[string]workreports.Report{
		"w1": {ID: "w1", OwnerID: "U1", Summary: "ads review"},
	}}

	handler := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             &app.Config{AppEnv: "test"},
		Metrics:            metrics,
		Authenticator:      auth.Middleware{Service: authService, Logger: logger},
		AuthHandler:        auth.NewHandler(logger, authService, 0),
		CampaignsHandler:   campaigns.NewHandler(logger, campaigns.NewService(campaignRepo, users), gate),
		WorkReportsHandler: workreports.NewHandler(logger, workreports.NewService(reports), gate),
	})
	return stack{handler: handler, reports: reports}
}

func (s stack) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func (s stack) login(t *testing.T, username string) string {
	t.Helper()
	rr := s.do(t, http.MethodPost, "/api/auth/login", "", `{"username":"`+username+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var result auth.LoginResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	require.NotEmpty(t, result.Token)
	return result.Token
}

func messageOf(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body httpx.MessageBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body.Message
}

func TestClientSeesOnlyOwnCampaigns(t *testing.T) {
	s := newStack(t)
	token := s.login(t, "acme")

	rr := s.do(t, http.MethodGet, "/api/campaigns/", token, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var page shared.PagedResult[campaigns.Campaign]
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
	require.Len(t, page.Items, 2)
	for _, c := range page.Items {
		assert.Equal(t, "C1", c.ClientID)
	}

	rr = s.do(t, http.MethodGet, "/api/campaigns/k2", token, "")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = s.do(t, http.MethodPost, "/api/campaigns/", token, `{"clientId":"C1","name":"Autumn"}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, rbac.DeniedMessage(rbac.ActionEdit), messageOf(t, rr))
}

func TestManagerSeesEveryCampaign(t *testing.T) {
	s := newStack(t)
	token := s.login(t, "mara")

	rr := s.do(t, http.MethodGet, "/api/campaigns/", token, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var page shared.PagedResult[campaigns.Campaign]
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
	assert.Len(t, page.Items, 3)

	rr = s.do(t, http.MethodDelete, "/api/campaigns/k1", token, "")
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, rbac.DeniedMessage(rbac.ActionDelete), messageOf(t, rr))
}

func TestWorkReportOwnershipBeatsPageGrant(t *testing.T) {
	s := newStack(t)
	other := s.login(t, "udo")

	rr := s.do(t, http.MethodDelete, "/api/work-reports/w1", other, "")
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Empty(t, s.reports.deleted)

	owner := s.login(t, "una")
	rr = s.do(t, http.MethodDelete, "/api/work-reports/w1", owner, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, []string{"w1"}, s.reports.deleted)
}

func TestLogoutRevokesToken(t *testing.T) {
	s := newStack(t)
	token := s.login(t, "mara")

	rr := s.do(t, http.MethodPost, "/api/auth/logout", token, "")
	require.Less(t, rr.Code, 300)

	rr = s.do(t, http.MethodGet, "/api/campaigns/", token, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, httpx.MsgInvalidSession, messageOf(t, rr))
}
