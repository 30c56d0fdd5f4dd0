package workreports

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adsuite/backoffice/internal/rbac"
	"github.com/adsuite/backoffice/internal/shared"
)

type memoryRepo struct {
	rows    map[string]Report
	deleted []string
	updated int
}

func newRepo(rows ...Report) *memoryRepo {
	m := &memoryRepo{rows: map[string]Report{}}
	for _, r := range rows {
		m.rows[r.ID] = r
	}
	return m
}

func (m *memoryRepo) List(ctx context.Context, ownerID string, page shared.PageRequest) ([]Report, int, error) {
	var out []Report
	for _, r := range m.rows {
		if ownerID == "" || r.OwnerID == ownerID {
			out = append(out, r)
		}
	}
	return out, len(out), nil
}

func (m *memoryRepo) Get(ctx context.Context, id string) (Report, error) {
	r, ok := m.rows[id]
	if !ok {
		return Report{}, shared.ErrNotFound
	}
	return r, nil
}

func (m *memoryRepo) Create(ctx context.Context, r Report) (Report, error) {
	r.ID = "new"
	m.rows[r.ID] = r
	return r, nil
}

func (m *memoryRepo) Update(ctx context.Context, r Report) (Report, error) {
	m.updated++
	m.rows[r.ID] = r
	return r, nil
}

func (m *memoryRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	delete(m.rows, id)
	return nil
}

var (
	u1    = shared.Principal{ID: "U1", Username: "una", Role: shared.RoleUser}
	u2    = shared.Principal{ID: "U2", Username: "udo", Role: shared.RoleUser}
	admin = shared.Principal{ID: "A1", Username: "root", Role: shared.RoleAdmin}
)

func seeded() (*Service, *memoryRepo) {
	repo := newRepo(
		Report{ID: "w1", OwnerID: "U1", Summary: "ads review", Hours: 6},
		Report{ID: "w2", OwnerID: "U2", Summary: "client call", Hours: 2},
	)
	return NewService(repo), repo
}

func TestListShowsOwnReportsUnlessAdmin(t *testing.T) {
	svc, _ := seeded()
	ctx := context.Background()
	page := shared.PageRequest{Page: 1, PerPage: 20}

	mine, err := svc.List(ctx, u1, page)
	require.NoError(t, err)
	require.Len(t, mine.Items, 1)
	assert.Equal(t, "w1", mine.Items[0].ID)

	all, err := svc.List(ctx, admin, page)
	require.NoError(t, err)
	assert.Len(t, all.Items, 2)
	assert.Equal(t, 2, all.Pagination.Total)
}

func TestDeleteOtherUsersReportIsForbidden(t *testing.T) {
	svc, repo := seeded()
	err := svc.Delete(context.Background(), u2, "w1")
	require.ErrorIs(t, err, shared.ErrForbidden)
	assert.Empty(t, repo.deleted)

	require.NoError(t, svc.Delete(context.Background(), u1, "w1"))
	assert.Equal(t, []string{"w1"}, repo.deleted)
}

func TestAdminMayTouchAnyReport(t *testing.T) {
	svc, repo := seeded()
	ctx := context.Background()
	rep, err := svc.Get(ctx, admin, "w2")
	require.NoError(t, err)
	assert.Equal(t, "U2", rep.OwnerID)

	updated, err := svc.Update(ctx, admin, "w2", Input{ReportDate: "2026-03-01", Summary: "revised", Hours: 3})
	require.NoError(t, err)
	assert.Equal(t, "U2", updated.OwnerID, "update keeps the original owner")
	assert.Equal(t, 1, repo.updated)
}

func TestMissingReportIsNotFound(t *testing.T) {
	svc, _ := seeded()
	_, err := svc.Get(context.Background(), u1, "nope")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCreateOwnedByCaller(t *testing.T) {
	svc, _ := seeded()
	rep, err := svc.Create(context.Background(), u2, Input{ReportDate: "2026-03-02", Summary: "  setup  ", Hours: 4.5})
	require.NoError(t, err)
	assert.Equal(t, "U2", rep.OwnerID)
	assert.Equal(t, "setup", rep.Summary)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), rep.ReportDate)
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	svc, _ := seeded()
	cases := map[string]Input{
		"missing summary": {ReportDate: "2026-03-02", Hours: 1},
		"bad date":        {ReportDate: "02/03/2026", Summary: "x", Hours: 1},
		"too many hours":  {ReportDate: "2026-03-02", Summary: "x", Hours: 25},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), u1, in)
			assert.ErrorIs(t, err, shared.ErrValidation)
		})
	}
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

// A page-level delete grant does not extend to someone else's record.
func TestDeleteRouteChecksOwnershipAfterGate(t *testing.T) {
	svc, repo := seeded()
	gate := rbac.Middleware{Evaluator: rbac.NewEvaluator(permStore{
		"user/work_reports": {CanView: true, CanEdit: true, CanDelete: true},
	})}
	r := chi.NewRouter()
	r.Route("/work-reports", NewHandler(slog.Default(), svc, gate).MountRoutes)

	do := func(p shared.Principal, method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req = req.WithContext(shared.ContextWithPrincipal(req.Context(), p))
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		return rr
	}

	rr := do(u2, http.MethodDelete, "/work-reports/w1", "")
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Empty(t, repo.deleted)

	rr = do(u1, http.MethodDelete, "/work-reports/w1", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(u2, http.MethodPost, "/work-reports/", `{"reportDate":"2026-03-05","summary":"standup","hours":1}`)
	assert.Equal(t, http.StatusCreated, rr.Code)

	// no grant for managers at all
	rr = do(shared.Principal{ID: "M1", Role: shared.RoleManager}, http.MethodGet, "/work-reports/", "")
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Contains(t, rr.Body.String(), "view permission")
}
