package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	audithttp "github.com/adsuite/backoffice/internal/audit/http"
	"github.com/adsuite/backoffice/internal/auth"
	"github.com/adsuite/backoffice/internal/campaigns"
	"github.com/adsuite/backoffice/internal/clients"
	"github.com/adsuite/backoffice/internal/menu"
	"github.com/adsuite/backoffice/internal/observability"
	"github.com/adsuite/backoffice/internal/platform/httpx"
	"github.com/adsuite/backoffice/internal/rbac"
	"github.com/adsuite/backoffice/internal/roles"
	"github.com/adsuite/backoffice/internal/tags"
	"github.com/adsuite/backoffice/internal/users"
	"github.com/adsuite/backoffice/internal/workreports"
	"github.com/adsuite/backoffice/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	Metrics *observability.Metrics

	Authenticator      auth.Middleware
	AuthHandler        *auth.Handler
	RBACHandler        *rbac.Handler
	MenuHandler        *menu.Handler
	RolesHandler       *roles.Handler
	UsersHandler       *users.Handler
	ClientsHandler     *clients.Handler
	CampaignsHandler   *campaigns.Handler
	WorkReportsHandler *workreports.Handler
	TagsHandler        *tags.Handler
	AuditHandler       *audithttp.Handler
	JobHandler         *jobs.Handler
}

// NewRouter constructs the chi.Router. Everything under /api except
// /api/auth requires a session.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		if params.AuthHandler != nil {
			r.Route("/auth", params.AuthHandler.MountRoutes)
		}

		r.Group(func(r chi.Router) {
			r.Use(params.Authenticator.Authenticate)

			if params.RBACHandler != nil {
				params.RBACHandler.MountRoutes(r)
			}
			if params.MenuHandler != nil {
				params.MenuHandler.MountSelfRoutes(r)
			}
			r.Route("/users", func(r chi.Router) {
				r.Use(rbac.RequireAdminOrSuperAdmin)
				if params.UsersHandler != nil {
					params.UsersHandler.MountRoutes(r)
				}
				if params.MenuHandler != nil {
					params.MenuHandler.MountUserRoutes(r)
				}
			})
			if params.RolesHandler != nil {
				r.Route("/roles", params.RolesHandler.MountRoutes)
			}
			if params.ClientsHandler != nil {
				r.Route("/clients", params.ClientsHandler.MountRoutes)
			}
			if params.CampaignsHandler != nil {
				r.Route("/campaigns", params.CampaignsHandler.MountRoutes)
			}
			if params.WorkReportsHandler != nil {
				r.Route("/work-reports", params.WorkReportsHandler.MountRoutes)
			}
			if params.TagsHandler != nil {
				r.Route("/tags", params.TagsHandler.MountRoutes)
			}
			if params.AuditHandler != nil {
				params.AuditHandler.MountRoutes(r)
			}
			if params.JobHandler != nil {
				r.Route("/jobs", func(r chi.Router) {
					r.Use(rbac.RequireSuperAdmin)
					params.JobHandler.MountRoutes(r)
				})
			}
		})
	})

	return r
}
