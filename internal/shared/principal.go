package shared

import (
	"fmt"
	"strings"
)

// Role is the closed set of account roles.
type Role string

const (
	RoleUser       Role = "user"
	RoleManager    Role = "manager"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
	RoleClient     Role = "client"
)

// AllRoles lists every role in display order.
func AllRoles() []Role {
	return []Role{RoleUser, RoleManager, RoleAdmin, RoleSuperAdmin, RoleClient}
}

// ParseRole converts external input into a Role.
func ParseRole(raw string) (Role, error) {
	role := Role(strings.TrimSpace(strings.ToLower(raw)))
	if !role.Valid() {
		return "", fmt.Errorf("%w: unknown role %q", ErrValidation, raw)
	}
	return role, nil
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleManager, RoleAdmin, RoleSuperAdmin, RoleClient:
		return true
	}
	return false
}

// IsAdmin is true for admin and super_admin.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// In reports whether r is one of allowed.
func (r Role) In(allowed ...Role) bool {
	for _, a := range allowed {
		if r == a {
			return true
		}
	}
	return false
}

func (r Role) String() string { return string(r) }

// Principal is the authenticated actor of a request. It deliberately carries
// no client id: handlers that scope by client re-read the user record.
type Principal struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}
