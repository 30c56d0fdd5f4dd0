// Package ownership restricts which rows a principal may see or change once a
// page permission check has already passed.
package ownership

import (
	"context"
	"errors"
	"fmt"

	"github.com/adsuite/backoffice/internal/shared"
)

// ClientLookup re-reads the client binding of a user. The principal does not carry it.
type ClientLookup interface {
	ClientIDOf(ctx context.Context, userID string) (*string, error)
}

// Scope is the client restriction applied to client-scoped collections.
// The zero value is unrestricted.
type Scope struct {
	restricted bool
	clientID   string
}

// Unrestricted sees every row.
func Unrestricted() Scope { return Scope{} }

// ForClient sees only rows of clientID. An empty id sees nothing.
func ForClient(clientID string) Scope {
	return Scope{restricted: true, clientID: clientID}
}

// Restricted reports whether a client filter applies.
func (s Scope) Restricted() bool { return s.restricted }

// ClientID returns the client the scope is pinned to.
func (s Scope) ClientID() string { return s.clientID }

// Allows reports whether a row owned by clientID is visible.
func (s Scope) Allows(clientID string) bool {
	if !s.restricted {
		return true
	}
	return s.clientID != "" && s.clientID == clientID
}

// Where renders a SQL predicate for column using placeholder $argPos. It
// returns an empty clause for an unrestricted scope.
func (s Scope) Where(column string, argPos int) (string, []any) {
	if !s.restricted {
		return "", nil
	}
	if s.clientID == "" {
		return "FALSE", nil
	}
	return fmt.Sprintf("%s = $%d", column, argPos), []any{s.clientID}
}

// Check returns shared.ErrForbidden when a single row is outside the scope.
func (s Scope) Check(clientID string) error {
	if s.Allows(clientID) {
		return nil
	}
	return shared.ErrForbidden
}

// Resolve derives the scope for principal. Only the client role is restricted;
// a client account without a client binding, or whose record has vanished,
// resolves to a scope that matches nothing.
func Resolve(ctx context.Context, principal shared.Principal, lookup ClientLookup) (Scope, error) {
	if principal.Role != shared.RoleClient {
		return Unrestricted(), nil
	}
	clientID, err := lookup.ClientIDOf(ctx, principal.ID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return ForClient(""), nil
		}
		return Scope{}, fmt.Errorf("ownership: client lookup: %w", err)
	}
	if clientID == nil {
		return ForClient(""), nil
	}
	return ForClient(*clientID), nil
}

// Filter keeps the rows whose client is visible in scope.
func Filter[T any](scope Scope, rows []T, clientOf func(T) string) []T {
	if !scope.Restricted() {
		return rows
	}
	out := make([]T, 0, len(rows))
	for _, row := range rows {
		if scope.Allows(clientOf(row)) {
			out = append(out, row)
		}
	}
	return out
}

// RequireOwnerOrAdmin allows admin and super_admin unconditionally and
// everyone else only for records they own.
func RequireOwnerOrAdmin(principal shared.Principal, ownerID string) error {
	if principal.Role.IsAdmin() {
		return nil
	}
	if principal.ID != "" && principal.ID == ownerID {
		return nil
	}
	return shared.ErrForbidden
}
