package tags

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/adsuite/backoffice/internal/platform/httpx"
	"github.com/adsuite/backoffice/internal/rbac"
	"github.com/adsuite/backoffice/internal/shared"
)

// Handler exposes tag endpoints behind the admin role floor.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers tag routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(rbac.RequireAdminOrSuperAdmin)
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Delete("/{id}", h.delete)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		httpx.Fail(h.logger, w, "list tags", err)
		return
	}
	if items == nil {
		items = []Tag{}
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, _ := shared.PrincipalFromContext(r.Context())
	t, err := h.service.Create(r.Context(), p, in)
	if err != nil {
		httpx.Fail(h.logger, w, "create tag", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, t)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	if err := h.service.Delete(r.Context(), p, chi.URLParam(r, "id")); err != nil {
		httpx.Fail(h.logger, w, "delete tag", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
