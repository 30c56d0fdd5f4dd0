package roles

import "github.com/adsuite/backoffice/internal/shared"

// Role describes one entry of the fixed role set for the admin UI.
type Role struct {
	Key       shared.Role `json:"key"`
	Label     string      `json:"label"`
	IsAdmin   bool        `json:"isAdmin"`
	UserCount int         `json:"userCount"`
}
