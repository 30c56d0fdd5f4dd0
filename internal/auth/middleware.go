package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/adsuite/backoffice/internal/platform/httpx"
	"github.com/adsuite/backoffice/internal/shared"
)

// Middleware resolves the bearer token on every request.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// Authenticate attaches the principal to the request context or rejects with 401.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r)
		if token == "" {
			httpx.Message(w, http.StatusUnauthorized, httpx.MsgUnauthorized)
			return
		}
		principal, err := m.Service.Resolve(r.Context(), token)
		if err != nil {
			if errors.Is(err, shared.ErrUnauthenticated) {
				httpx.Message(w, http.StatusUnauthorized, httpx.MsgInvalidSession)
				return
			}
			if m.Logger != nil {
				m.Logger.Error("auth resolve", slog.Any("error", err))
			}
			httpx.Message(w, http.StatusInternalServerError, httpx.MsgInternal)
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithPrincipal(r.Context(), principal)))
	})
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
