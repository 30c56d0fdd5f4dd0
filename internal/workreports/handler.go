package workreports

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/adsuite/backoffice/internal/platform/httpx"
	"github.com/adsuite/backoffice/internal/rbac"
	"github.com/adsuite/backoffice/internal/shared"
)

// Handler exposes work reports on the "work_reports" page.
type Handler struct {
	logger  *slog.Logger
	service *Service
	gate    rbac.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, gate rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, gate: gate}
}

// MountRoutes registers work report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.gate.RequireView(rbac.PageWorkReports)).Get("/", h.list)
	r.With(h.gate.RequireView(rbac.PageWorkReports)).Get("/{id}", h.get)
	r.With(h.gate.RequireEdit(rbac.PageWorkReports)).Post("/", h.create)
	r.With(h.gate.RequireEdit(rbac.PageWorkReports)).Put("/{id}", h.update)
	r.With(h.gate.RequireDelete(rbac.PageWorkReports)).Delete("/{id}", h.delete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	result, err := h.service.List(r.Context(), p, shared.PageRequestFromQuery(r))
	if err != nil {
		httpx.Fail(h.logger, w, "list work reports", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	rep, err := h.service.Get(r.Context(), p, chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(h.logger, w, "get work report", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rep)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, _ := shared.PrincipalFromContext(r.Context())
	rep, err := h.service.Create(r.Context(), p, in)
	if err != nil {
		httpx.Fail(h.logger, w, "create work report", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, rep)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, _ := shared.PrincipalFromContext(r.Context())
	rep, err := h.service.Update(r.Context(), p, chi.URLParam(r, "id"), in)
	if err != nil {
		httpx.Fail(h.logger, w, "update work report", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rep)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	if err := h.service.Delete(r.Context(), p, chi.URLParam(r, "id")); err != nil {
		httpx.Fail(h.logger, w, "delete work report", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
