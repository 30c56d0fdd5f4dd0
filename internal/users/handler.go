package users

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/adsuite/backoffice/internal/platform/httpx"
	"github.com/adsuite/backoffice/internal/shared"
)

// Handler manages user management endpoints. Routes are mounted behind the
// admin role floor by the router.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listUsers)
	r.Post("/", h.createUser)
	r.Get("/{id}", h.getUser)
	r.Patch("/{id}/role", h.changeRole)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{Search: r.URL.Query().Get("q")}
	if raw := r.URL.Query().Get("role"); raw != "" {
		role, err := shared.ParseRole(raw)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		filter.Role = role
	}
	result, err := h.service.ListUsers(r.Context(), filter, shared.PageRequestFromQuery(r))
	if err != nil {
		h.fail(w, "list users failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "get user failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var input CreateUserInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.PrincipalFromContext(r.Context())
	user, err := h.service.CreateUser(r.Context(), actor, input)
	if err != nil {
		h.fail(w, "create user failed", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, user)
}

func (h *Handler) changeRole(w http.ResponseWriter, r *http.Request) {
	var input ChangeRoleInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.PrincipalFromContext(r.Context())
	user, err := h.service.ChangeRole(r.Context(), actor, chi.URLParam(r, "id"), input)
	if err != nil {
		h.fail(w, "change role failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	httpx.Fail(h.logger, w, msg, err)
}
