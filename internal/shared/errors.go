package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated covers missing, unknown and expired session tokens.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden indicates an authenticated actor lacks the required permission or ownership.
	ErrForbidden = errors.New("forbidden")
	// ErrValidation wraps malformed input on administrative and CRUD payloads.
	ErrValidation = errors.New("validation failed")
	// ErrConflict indicates a uniqueness violation.
	ErrConflict = errors.New("conflict")
)
