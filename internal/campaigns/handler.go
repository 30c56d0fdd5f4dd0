package campaigns

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/adsuite/backoffice/internal/platform/httpx"
	"github.com/adsuite/backoffice/internal/rbac"
	"github.com/adsuite/backoffice/internal/shared"
)

// Handler exposes campaigns on the "campaigns" page.
type Handler struct {
	logger  *slog.Logger
	service *Service
	gate    rbac.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, gate rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, gate: gate}
}

// MountRoutes registers campaign routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.gate.RequireView(rbac.PageCampaigns)).Get("/", h.list)
	r.With(h.gate.RequireView(rbac.PageCampaigns)).Get("/{id}", h.get)
	r.With(h.gate.RequireEdit(rbac.PageCampaigns)).Post("/", h.create)
	r.With(h.gate.RequireEdit(rbac.PageCampaigns)).Put("/{id}", h.update)
	r.With(h.gate.RequireDelete(rbac.PageCampaigns)).Delete("/{id}", h.delete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	filter := ListFilter{ClientID: r.URL.Query().Get("clientId"), Status: r.URL.Query().Get("status")}
	result, err := h.service.List(r.Context(), p, filter, shared.PageRequestFromQuery(r))
	if err != nil {
		httpx.Fail(h.logger, w, "list campaigns", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	c, err := h.service.Get(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(h.logger, w, "get campaign", err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, _ := shared.PrincipalFromContext(r.Context())
	c, err := h.service.Create(r.Context(), p, in)
	if err != nil {
		httpx.Fail(h.logger, w, "create campaign", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, _ := shared.PrincipalFromContext(r.Context())
	c, err := h.service.Update(r.Context(), p, chi.URLParam(r, "id"), in)
	if err != nil {
		httpx.Fail(h.logger, w, "update campaign", err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	if err := h.service.Delete(r.Context(), p, chi.URLParam(r, "id")); err != nil {
		httpx.Fail(h.logger, w, "delete campaign", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
