package menu

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/adsuite/backoffice/internal/platform/httpx"
	"github.com/adsuite/backoffice/internal/shared"
)

// Handler exposes menu visibility endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountSelfRoutes registers the caller's own menu under an authenticated router.
func (h *Handler) MountSelfRoutes(r chi.Router) {
	r.Get("/menu-permissions/me", h.handleMine)
}

// MountUserRoutes registers per-user administration. The caller mounts it
// under /users behind the admin role floor.
func (h *Handler) MountUserRoutes(r chi.Router) {
	r.Get("/{id}/menu-permissions", h.handleGet)
	r.Put("/{id}/menu-permissions", h.handleReplace)
	r.Patch("/{id}/menu-permissions/{section}", h.handleSetSection)
}

type sectionInput struct {
	Value *bool `json:"value"`
}

func (h *Handler) handleMine(w http.ResponseWriter, r *http.Request) {
	p, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Message(w, http.StatusUnauthorized, httpx.MsgUnauthorized)
		return
	}
	m, err := h.service.ForPrincipal(r.Context(), p)
	if err != nil {
		h.fail(w, "menu load own", err)
		return
	}
	httpx.JSON(w, http.StatusOK, m)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	m, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "menu get", err)
		return
	}
	httpx.JSON(w, http.StatusOK, m)
}

func (h *Handler) handleReplace(w http.ResponseWriter, r *http.Request) {
	var flags Flags
	if err := httpx.DecodeJSON(r, &flags); err != nil {
		httpx.RespondError(w, err)
		return
	}
	m, err := h.service.Replace(r.Context(), chi.URLParam(r, "id"), flags)
	if err != nil {
		h.fail(w, "menu replace", err)
		return
	}
	httpx.JSON(w, http.StatusOK, m)
}

func (h *Handler) handleSetSection(w http.ResponseWriter, r *http.Request) {
	var input sectionInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if input.Value == nil {
		httpx.Message(w, http.StatusBadRequest, "value is required")
		return
	}
	m, err := h.service.SetSection(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "section"), *input.Value)
	if err != nil {
		h.fail(w, "menu set section", err)
		return
	}
	httpx.JSON(w, http.StatusOK, m)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	httpx.Fail(h.logger, w, msg, err)
}
