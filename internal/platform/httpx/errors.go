// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/adsuite/backoffice/internal/shared"
)

// Messages shared by the authentication and authorization layers.
const (
	MsgUnauthorized       = "Unauthorized"
	MsgInvalidSession     = "Invalid or expired session"
	MsgPermissionFailed   = "Permission check failed"
	MsgInternal           = "Internal server error"
	MsgSuperAdminRequired = "Super Admin access required"
	MsgAdminRequired      = "Admin access required"
)

// RespondError maps domain errors to HTTP responses. Validation and conflict
// details are echoed; internal errors never are.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Message(w, http.StatusNotFound, "Not found")
	case errors.Is(err, shared.ErrValidation):
		Message(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, shared.ErrConflict):
		Message(w, http.StatusConflict, err.Error())
	case errors.Is(err, shared.ErrForbidden):
		Message(w, http.StatusForbidden, "Access denied")
	case errors.Is(err, shared.ErrUnauthenticated):
		Message(w, http.StatusUnauthorized, MsgUnauthorized)
	default:
		Message(w, http.StatusInternalServerError, MsgInternal)
	}
}

// Fail logs unexpected errors at error level and then responds like RespondError.
// Expected domain errors are not logged.
func Fail(logger *slog.Logger, w http.ResponseWriter, msg string, err error) {
	if !isExpected(err) {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error(msg, slog.Any("error", err))
	}
	RespondError(w, err)
}

func isExpected(err error) bool {
	for _, target := range []error{shared.ErrNotFound, shared.ErrValidation, shared.ErrConflict, shared.ErrForbidden, shared.ErrUnauthenticated} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
