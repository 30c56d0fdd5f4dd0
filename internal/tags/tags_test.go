package tags

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

	"github.com/adsuite/backoffice/internal/platform/httpx"
	"github.com/adsuite/backoffice/internal/shared"
)

type memoryRepo struct {
	tags []Tag
}

func (m *memoryRepo) List(ctx context.Context) ([]Tag, error) { return m.tags, nil }

func (m *memoryRepo) Create(ctx context.Context, in Input) (Tag, error) {
	for _, t := range m.tags {
		if t.Name == in.Name {
			return Tag{}, shared.ErrConflict
		}
	}
	t := Tag{ID: in.Name, Name: in.Name, Color: in.Color}
	m.tags = append(m.tags, t)
	return t, nil
}

func (m *memoryRepo) Delete(ctx context.Context, id string) error {
	for i, t := range m.tags {
		if t.ID == id {
			m.tags = append(m.tags[:i], m.tags[i+1:]...)
			return nil
		}
	}
	return shared.ErrNotFound
}

type auditSpy struct{ actions []string }

func (a *auditSpy) Record(ctx context.Context, log shared.AuditLog) error {
	a.actions = append(a.actions, log.Action)
	return nil
}

func TestCreateNormalisesAndAudits(t *testing.T) {
	spy := &auditSpy{}
	svc := NewService(&memoryRepo{}, spy)
	tag, err := svc.Create(context.Background(), shared.Principal{ID: "A1"}, Input{Name: " promo ", Color: "#FFAA00"})
	require.NoError(t, err)
	assert.Equal(t, "promo", tag.Name)
	assert.Equal(t, "#ffaa00", tag.Color)

	_, err = svc.Create(context.Background(), shared.Principal{ID: "A1"}, Input{Name: "bad", Color: "orange"})
	assert.ErrorIs(t, err, shared.ErrValidation)

	require.NoError(t, svc.Delete(context.Background(), shared.Principal{ID: "A1"}, "promo"))
	assert.Equal(t, []string{"tag.create", "tag.delete"}, spy.actions)
}

func TestRoutesRequireAdmin(t *testing.T) {
	svc := NewService(&memoryRepo{tags: []Tag{{ID: "t1", Name: "q4"}}}, nil)
	r := chi.NewRouter()
	r.Route("/tags", NewHandler(slog.Default(), svc).MountRoutes)

	do := func(role shared.Role, method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req = req.WithContext(shared.ContextWithPrincipal(req.Context(), shared.Principal{ID: "x", Role: role}))
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		return rr
	}

	rr := do(shared.RoleManager, http.MethodGet, "/tags/", "")
	assert.Equal(t, http.StatusForbidden, rr.Code)
	var body httpx.MessageBody
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, httpx.MsgAdminRequired, body.Message)

	rr = do(shared.RoleAdmin, http.MethodGet, "/tags/", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = do(shared.RoleSuperAdmin, http.MethodPost, "/tags/", `{"name":"q4"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = do(shared.RoleAdmin, http.MethodDelete, "/tags/missing", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
