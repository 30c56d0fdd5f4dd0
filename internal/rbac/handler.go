package rbac

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/adsuite/backoffice/internal/platform/httpx"
	"github.com/adsuite/backoffice/internal/shared"
)

// Handler exposes permission administration over JSON.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	evaluator *Evaluator
	gate      Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, evaluator *Evaluator, gate Middleware) *Handler {
	return &Handler{logger: logger, service: service, evaluator: evaluator, gate: gate}
}

type bulkRequest struct {
	Updates []BulkItem `json:"updates"`
}

type bulkResponse struct {
	Results   []BulkResult `json:"results"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
}

// MountRoutes registers routes on an authenticated router.
func (h *Handler) MountRoutes(r chi.Router) {
	bypass := WithSuperAdminBypass()

	r.Get("/permissions/me", h.handleMyPermissions)

	r.Group(func(r chi.Router) {
		r.With(h.gate.RequireView(PageAdmin, bypass)).Get("/pages", h.handleListPages)
		r.With(h.gate.RequireEdit(PageAdmin, bypass)).Post("/pages", h.handleCreatePage)

		r.With(h.gate.RequireView(PageAdmin, bypass)).Get("/role-permissions", h.handleListRolePermissions)
		r.With(h.gate.RequireEdit(PageAdmin, bypass)).Patch("/role-permissions/{id}", h.handleToggle)
		r.With(h.gate.RequireEdit(PageAdmin, bypass)).Put("/role-permissions/{id}", h.handleSetFlags)
		r.With(h.gate.RequireEdit(PageAdmin, bypass)).Post("/role-permissions/bulk", h.handleBulk)
	})

	r.Route("/admin/permissions", func(r chi.Router) {
		r.Use(RequireSuperAdmin)
		r.Get("/export", h.handleExport)
		r.Post("/import", h.handleImport)
	})
}

func (h *Handler) handleMyPermissions(w http.ResponseWriter, r *http.Request) {
	principal, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.Message(w, http.StatusUnauthorized, httpx.MsgUnauthorized)
		return
	}
	perms, err := h.evaluator.Effective(r.Context(), principal)
	if err != nil {
		h.fail(w, "rbac effective permissions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"role": principal.Role, "permissions": perms})
}

func (h *Handler) handleListPages(w http.ResponseWriter, r *http.Request) {
	pages, err := h.service.ListPages(r.Context())
	if err != nil {
		h.fail(w, "rbac list pages", err)
		return
	}
	httpx.JSON(w, http.StatusOK, pages)
}

func (h *Handler) handleCreatePage(w http.ResponseWriter, r *http.Request) {
	var input PageInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	page, err := h.service.CreatePage(r.Context(), actor(r), input)
	if err != nil {
		h.fail(w, "rbac create page", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, page)
}

func (h *Handler) handleListRolePermissions(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{PageKey: r.URL.Query().Get("pageKey")}
	if raw := r.URL.Query().Get("role"); raw != "" {
		role, err := shared.ParseRole(raw)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		filter.Role = role
	}
	rows, err := h.service.ListRolePermissions(r.Context(), filter)
	if err != nil {
		h.fail(w, "rbac list role permissions", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}

func (h *Handler) handleToggle(w http.ResponseWriter, r *http.Request) {
	var input ToggleInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	updated, err := h.service.Toggle(r.Context(), actor(r), chi.URLParam(r, "id"), input)
	if err != nil {
		h.fail(w, "rbac toggle", err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) handleSetFlags(w http.ResponseWriter, r *http.Request) {
	var flags Flags
	if err := httpx.DecodeJSON(r, &flags); err != nil {
		httpx.RespondError(w, err)
		return
	}
	updated, err := h.service.SetFlags(r.Context(), actor(r), chi.URLParam(r, "id"), flags)
	if err != nil {
		h.fail(w, "rbac set flags", err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) handleBulk(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if len(req.Updates) == 0 {
		httpx.Message(w, http.StatusBadRequest, "updates must not be empty")
		return
	}
	results := h.service.BulkUpdate(r.Context(), actor(r), req.Updates)
	resp := bulkResponse{Results: results}
	for _, res := range results {
		if res.Success {
			resp.Succeeded++
		} else {
			resp.Failed++
		}
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.Export(r.Context())
	if err != nil {
		h.fail(w, "rbac export", err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="permissions.json"`)
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	var doc ExportDocument
	if err := httpx.DecodeJSON(r, &doc); err != nil {
		httpx.RespondError(w, err)
		return
	}
	summary, err := h.service.Import(r.Context(), actor(r), doc)
	if err != nil {
		h.fail(w, "rbac import", err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	httpx.Fail(h.logger, w, msg, err)
}

func actor(r *http.Request) shared.Principal {
	p, _ := shared.PrincipalFromContext(r.Context())
	return p
}
