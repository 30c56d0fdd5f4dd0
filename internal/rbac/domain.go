package rbac

import (
	"fmt"
	"strings"
	"time"

	"github.com/adsuite/backoffice/internal/shared"
)

// Action is the operation a route performs on a page.
type Action uint8

const (
	ActionView Action = iota + 1
	ActionEdit
	ActionDelete
)

// ParseAction converts the wire form ("view", "edit", "delete") into an Action.
func ParseAction(raw string) (Action, error) {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "view":
		return ActionView, nil
	case "edit":
		return ActionEdit, nil
	case "delete":
		return ActionDelete, nil
	}
	return 0, fmt.Errorf("%w: unknown action %q", shared.ErrValidation, raw)
}

func (a Action) String() string {
	switch a {
	case ActionView:
		return "view"
	case ActionEdit:
		return "edit"
	case ActionDelete:
		return "delete"
	}
	return "unknown"
}

// Page is an independently permissioned unit of functionality.
type Page struct {
	ID          string    `json:"id"`
	PageKey     string    `json:"pageKey"`
	DisplayName string    `json:"displayName"`
	Path        string    `json:"path"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

// PageInput is the payload for creating a page.
type PageInput struct {
	PageKey     string `json:"pageKey" validate:"required,min=2,max=64,pagekey"`
	DisplayName string `json:"displayName" validate:"max=120"`
	Path        string `json:"path" validate:"max=255"`
	Description string `json:"description" validate:"max=500"`
}

// Flags holds the three independent permission columns.
type Flags struct {
	CanView   bool `json:"canView"`
	CanEdit   bool `json:"canEdit"`
	CanDelete bool `json:"canDelete"`
}

// Allows returns the column for action. Columns are read independently:
// CanEdit does not require CanView here.
func (f Flags) Allows(action Action) bool {
	switch action {
	case ActionView:
		return f.CanView
	case ActionEdit:
		return f.CanEdit
	case ActionDelete:
		return f.CanDelete
	}
	return false
}

// With returns a copy of f with the column for action set to allowed.
func (f Flags) With(action Action, allowed bool) Flags {
	switch action {
	case ActionView:
		f.CanView = allowed
	case ActionEdit:
		f.CanEdit = allowed
	case ActionDelete:
		f.CanDelete = allowed
	}
	return f
}

// Cascaded clears edit and delete when view is off.
func (f Flags) Cascaded() Flags {
	if !f.CanView {
		f.CanEdit = false
		f.CanDelete = false
	}
	return f
}

// RolePermission binds a role to a page.
type RolePermission struct {
	ID        string      `json:"id"`
	Role      shared.Role `json:"role"`
	PageID    string      `json:"pageId"`
	PageKey   string      `json:"pageKey,omitempty"`
	Flags
	UpdatedAt time.Time `json:"updatedAt"`
}

// ListFilter narrows role permission listings.
type ListFilter struct {
	Role    shared.Role
	PageKey string
}

// ToggleInput flips a single action column.
type ToggleInput struct {
	Action  string `json:"action" validate:"required,oneof=view edit delete"`
	Allowed *bool  `json:"allowed" validate:"required"`
}

// BulkItem is one row of a bulk update.
type BulkItem struct {
	ID        string `json:"id" validate:"required"`
	CanView   bool   `json:"canView"`
	CanEdit   bool   `json:"canEdit"`
	CanDelete bool   `json:"canDelete"`
}

// BulkResult reports the outcome of one bulk row.
type BulkResult struct {
	ID         string          `json:"id"`
	Success    bool            `json:"success"`
	Error      string          `json:"error,omitempty"`
	Permission *RolePermission `json:"permission,omitempty"`
}

// EffectivePermission is a page as seen by one role.
type EffectivePermission struct {
	PageKey string `json:"pageKey"`
	Flags
}

// ExportDocument is the portable form of the permission matrix, keyed by page key.
type ExportDocument struct {
	Version     int                `json:"version"`
	ExportedAt  time.Time          `json:"exportedAt"`
	Pages       []Page             `json:"pages"`
	Permissions []ExportPermission `json:"permissions"`
}

// ExportPermission references its page by key rather than id.
type ExportPermission struct {
	Role    shared.Role `json:"role"`
	PageKey string      `json:"pageKey"`
	Flags
}

// ImportSummary counts what an import changed.
type ImportSummary struct {
	PagesCreated       int      `json:"pagesCreated"`
	PermissionsUpdated int      `json:"permissionsUpdated"`
	Skipped            []string `json:"skipped,omitempty"`
}
