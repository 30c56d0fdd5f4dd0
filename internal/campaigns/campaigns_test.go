package campaigns

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adsuite/backoffice/internal/ownership"
	"github.com/adsuite/backoffice/internal/rbac"
	"github.com/adsuite/backoffice/internal/shared"
)

// memoryRepo honours the scope only when strict is set, so tests can check
// that the service filter alone keeps foreign rows out.
type memoryRepo struct {
	rows   []Campaign
	strict bool
	writes int
}

func (m *memoryRepo) List(ctx context.Context, scope ownership.Scope, filter ListFilter, page shared.PageRequest) ([]Campaign, int, error) {
	var out []Campaign
	for _, c := range m.rows {
		if m.strict && !scope.Allows(c.ClientID) {
			continue
		}
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		out = append(out, c)
	}
	return out, len(out), nil
}

func (m *memoryRepo) Get(ctx context.Context, id string) (Campaign, error) {
	for _, c := range m.rows {
		if c.ID == id {
			return c, nil
		}
	}
	return Campaign{}, shared.ErrNotFound
}

func (m *memoryRepo) Create(ctx context.Context, in Input) (Campaign, error) {
	m.writes++
	c := Campaign{ID: "new", ClientID: in.ClientID, Name: in.Name, Status: in.Status, BudgetCents: in.BudgetCents}
	m.rows = append(m.rows, c)
	return c, nil
}

func (m *memoryRepo) Update(ctx context.Context, id string, in Input) (Campaign, error) {
	m.writes++
	for i, c := range m.rows {
		if c.ID == id {
			m.rows[i].Name = in.Name
			m.rows[i].ClientID = in.ClientID
			return m.rows[i], nil
		}
	}
	return Campaign{}, shared.ErrNotFound
}

func (m *memoryRepo) Delete(ctx context.Context, id string) error {
	m.writes++
	return nil
}

type lookup map[string]*string

func (l lookup) ClientIDOf(ctx context.Context, userID string) (*string, error) {
	id, ok := l[userID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return id, nil
}

func strPtr(s string) *string { return &s }

var (
	clientUser = shared.Principal{ID: "cu", Username: "acme", Role: shared.RoleClient}
	manager    = shared.Principal{ID: "mg", Username: "mgr", Role: shared.RoleManager}
)

func seeded(strict bool) (*Service, *memoryRepo) {
	repo := &memoryRepo{strict: strict, rows: []Campaign{
		{ID: "k1", ClientID: "C1", Name: "Spring", Status: StatusActive},
		{ID: "k2", ClientID: "C2", Name: "Summer", Status: StatusActive},
		{ID: "k3", ClientID: "C1", Name: "Autumn", Status: StatusDraft},
	}}
	return NewService(repo, lookup{"cu": strPtr("C1"), "mg": nil}), repo
}

func TestClientListExcludesOtherClients(t *testing.T) {
	for _, strict := range []bool{true, false} {
		svc, _ := seeded(strict)
		result, err := svc.List(context.Background(), clientUser, ListFilter{}, shared.PageRequest{Page: 1, PerPage: 50})
		require.NoError(t, err)
		require.Len(t, result.Items, 2)
		for _, c := range result.Items {
			assert.Equal(t, "C1", c.ClientID)
		}
	}
}

func TestClientCannotTouchForeignCampaign(t *testing.T) {
	svc, repo := seeded(true)
	ctx := context.Background()

	_, err := svc.Get(ctx, clientUser, "k2")
	assert.ErrorIs(t, err, shared.ErrForbidden)

	_, err = svc.Update(ctx, clientUser, "k2", Input{ClientID: "C2", Name: "x"})
	assert.ErrorIs(t, err, shared.ErrForbidden)

	_, err = svc.Update(ctx, clientUser, "k1", Input{ClientID: "C2", Name: "moved"})
	assert.ErrorIs(t, err, shared.ErrForbidden)

	_, err = svc.Create(ctx, clientUser, Input{ClientID: "C2", Name: "sneaky"})
	assert.ErrorIs(t, err, shared.ErrForbidden)

	assert.ErrorIs(t, svc.Delete(ctx, clientUser, "k2"), shared.ErrForbidden)
	assert.Zero(t, repo.writes)

	_, err = svc.Get(ctx, clientUser, "missing")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestManagerIsNotScoped(t *testing.T) {
	svc, _ := seeded(true)
	result, err := svc.List(context.Background(), manager, ListFilter{}, shared.PageRequest{Page: 1, PerPage: 50})
	require.NoError(t, err)
	assert.Len(t, result.Items, 3)

	c, err := svc.Create(context.Background(), manager, Input{ClientID: "C2", Name: "Winter"})
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, c.Status)

	_, err = svc.Create(context.Background(), manager, Input{ClientID: "C2", Name: "Bad", Status: "running"})
	assert.ErrorIs(t, err, shared.ErrValidation)
}

type permStore map[string]rbac.Flags

func (p permStore) FindRolePermission(ctx context.Context, role shared.Role, pageKey string) (rbac.RolePermission, error) {
	f, ok := p[string(role)+"/"+pageKey]
	if !ok {
		return rbac.RolePermission{}, shared.ErrNotFound
	}
	return rbac.RolePermission{Role: role, PageKey: pageKey, Flags: f}, nil
}

func (p permStore) ListRolePermissionsForRole(ctx context.Context, role shared.Role) ([]rbac.RolePermission, error) {
	return nil, nil
}

func TestRoutesGateThenScope(t *testing.T) {
	svc, repo := seeded(true)
	gate := rbac.Middleware{Evaluator: rbac.NewEvaluator(permStore{
		"client/campaigns": {CanView: true},
	})}
	r := chi.NewRouter()
	r.Route("/campaigns", NewHandler(slog.Default(), svc, gate).MountRoutes)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req = req.WithContext(shared.ContextWithPrincipal(req.Context(), clientUser))
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		return rr
	}

	rr := do(http.MethodGet, "/campaigns/", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var page shared.PagedResult[Campaign]
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
	assert.Len(t, page.Items, 2)

	rr = do(http.MethodGet, "/campaigns/k2", "")
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = do(http.MethodPost, "/campaigns/", `{"clientId":"C1","name":"Blocked"}`)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), "edit permission")
	assert.Zero(t, repo.writes)
}
