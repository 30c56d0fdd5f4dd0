package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"

	"github.com/adsuite/backoffice/internal/platform/httpx"
	"github.com/adsuite/backoffice/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger        *slog.Logger
	service       *Service
	middleware    Middleware
	validator     *validator.Validate
	loginAttempts int
}

// NewHandler constructs a Handler instance. loginAttempts caps login requests
// per IP per minute; zero disables the limit.
func NewHandler(logger *slog.Logger, service *Service, loginAttempts int) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:        logger,
		service:       service,
		middleware:    Middleware{Service: service, Logger: logger},
		validator:     shared.NewValidator(),
		loginAttempts: loginAttempts,
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h.loginAttempts > 0 {
		r.With(httprate.Limit(h.loginAttempts, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP))).Post("/login", h.handleLogin)
	} else {
		r.Post("/login", h.handleLogin)
	}
	r.Group(func(r chi.Router) {
		r.Use(h.middleware.Authenticate)
		r.Post("/logout", h.handleLogout)
		r.Get("/me", h.handleMe)
	})
}

type loginForm struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var form loginForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := shared.ValidateStruct(h.validator, form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Login(r.Context(), form.Username, form.Password, r.RemoteAddr, r.UserAgent())
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			httpx.Message(w, http.StatusUnauthorized, "Invalid username or password")
			return
		}
		h.logger.Error("login", slog.Any("error", err))
		httpx.Message(w, http.StatusInternalServerError, httpx.MsgInternal)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context(), BearerToken(r)); err != nil {
		h.logger.Error("logout", slog.Any("error", err))
		httpx.Message(w, http.StatusInternalServerError, httpx.MsgInternal)
		return
	}
	httpx.Message(w, http.StatusOK, "Logged out")
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	principal, _ := shared.PrincipalFromContext(r.Context())
	httpx.JSON(w, http.StatusOK, principal)
}
