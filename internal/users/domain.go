package users

import (
	"time"

	"github.com/adsuite/backoffice/internal/shared"
)

// User represents a user account for management.
type User struct {
	ID        string      `json:"id"`
	Username  string      `json:"username"`
	FullName  string      `json:"fullName"`
	Email     string      `json:"email"`
	Role      shared.Role `json:"role"`
	ClientID  *string     `json:"clientId"`
	IsActive  bool        `json:"isActive"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// CreateUserInput is the payload for creating an account.
type CreateUserInput struct {
	Username string  `json:"username" validate:"required,min=3,max=64"`
	Password string  `json:"password" validate:"required,min=8,max=128"`
	FullName string  `json:"fullName" validate:"max=120"`
	Email    string  `json:"email" validate:"omitempty,email,max=254"`
	Role     string  `json:"role" validate:"required,role"`
	ClientID *string `json:"clientId"`
}

// ChangeRoleInput moves a user to another role.
type ChangeRoleInput struct {
	Role     string  `json:"role" validate:"required,role"`
	ClientID *string `json:"clientId"`
}

// ListFilter narrows user listings.
type ListFilter struct {
	Role   shared.Role
	Search string
}
