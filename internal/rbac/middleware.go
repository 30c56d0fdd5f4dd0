package rbac

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/adsuite/backoffice/internal/observability"
	"github.com/adsuite/backoffice/internal/platform/httpx"
	"github.com/adsuite/backoffice/internal/shared"
)

// Middleware wires page and role-floor authorization for HTTP handlers.
// It must run after the authentication middleware has attached a principal.
type Middleware struct {
	Evaluator *Evaluator
	Logger    *slog.Logger
	Metrics   *observability.Metrics
}

// DeniedMessage is the 403 body for a failed page check.
func DeniedMessage(action Action) string {
	return fmt.Sprintf("Access denied. You don't have %s permission for this page.", action)
}

// RequirePage gates a route on (pageKey, action).
func (m Middleware) RequirePage(pageKey string, action Action, opts ...EvalOption) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := shared.PrincipalFromContext(r.Context())
			if !ok {
				httpx.Message(w, http.StatusUnauthorized, httpx.MsgUnauthorized)
				return
			}
			allowed, err := m.Evaluator.Evaluate(r.Context(), principal, pageKey, action, opts...)
			if err != nil {
				m.logger().Error("rbac permission check",
					slog.String("page", pageKey),
					slog.String("action", action.String()),
					slog.String("user_id", principal.ID),
					slog.Any("error", err))
				m.Metrics.RecordAuthz(pageKey, action.String(), observability.OutcomeError)
				httpx.Message(w, http.StatusInternalServerError, httpx.MsgPermissionFailed)
				return
			}
			if !allowed {
				m.logger().Debug("rbac denied",
					slog.String("page", pageKey),
					slog.String("action", action.String()),
					slog.String("role", principal.Role.String()))
				m.Metrics.RecordAuthz(pageKey, action.String(), observability.OutcomeDenied)
				httpx.Message(w, http.StatusForbidden, DeniedMessage(action))
				return
			}
			m.Metrics.RecordAuthz(pageKey, action.String(), observability.OutcomeAllowed)
			next.ServeHTTP(w, r)
		})
	}
}

// RequireView is RequirePage(pageKey, ActionView).
func (m Middleware) RequireView(pageKey string, opts ...EvalOption) func(http.Handler) http.Handler {
	return m.RequirePage(pageKey, ActionView, opts...)
}

// RequireEdit is RequirePage(pageKey, ActionEdit).
func (m Middleware) RequireEdit(pageKey string, opts ...EvalOption) func(http.Handler) http.Handler {
	return m.RequirePage(pageKey, ActionEdit, opts...)
}

// RequireDelete is RequirePage(pageKey, ActionDelete).
func (m Middleware) RequireDelete(pageKey string, opts ...EvalOption) func(http.Handler) http.Handler {
	return m.RequirePage(pageKey, ActionDelete, opts...)
}

// RequireRoles admits principals whose role is in allowed. It never consults
// the page permission table.
func RequireRoles(message string, allowed ...shared.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := shared.PrincipalFromContext(r.Context())
			if !ok {
				httpx.Message(w, http.StatusUnauthorized, httpx.MsgUnauthorized)
				return
			}
			if !principal.Role.In(allowed...) {
				httpx.Message(w, http.StatusForbidden, message)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSuperAdmin admits only super_admin.
func RequireSuperAdmin(next http.Handler) http.Handler {
	return RequireRoles(httpx.MsgSuperAdminRequired, shared.RoleSuperAdmin)(next)
}

// RequireAdminOrSuperAdmin admits admin and super_admin.
func RequireAdminOrSuperAdmin(next http.Handler) http.Handler {
	return RequireRoles(httpx.MsgAdminRequired, shared.RoleAdmin, shared.RoleSuperAdmin)(next)
}

func (m Middleware) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}
