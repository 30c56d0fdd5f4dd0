package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/adsuite/backoffice/internal/shared"
)

// EvalOption configures a single evaluation call site.
type EvalOption func(*evalOptions)

type evalOptions struct {
	superAdminBypass bool
}

// WithSuperAdminBypass lets super_admin pass without a store lookup.
func WithSuperAdminBypass() EvalOption {
	return func(o *evalOptions) {
		o.superAdminBypass = true
	}
}

func buildEvalOptions(opts []EvalOption) evalOptions {
	var o evalOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// Evaluator decides whether a principal may perform an action on a page.
// It holds no state between calls.
type Evaluator struct {
	store Store
}

// NewEvaluator constructs an Evaluator over store.
func NewEvaluator(store Store) *Evaluator {
	return &Evaluator{store: store}
}

// Evaluate returns true when the principal's role row for pageKey allows action.
// A missing row denies. Store failures are returned as errors and never as a deny.
func (e *Evaluator) Evaluate(ctx context.Context, principal shared.Principal, pageKey string, action Action, opts ...EvalOption) (bool, error) {
	o := buildEvalOptions(opts)
	if o.superAdminBypass && principal.Role == shared.RoleSuperAdmin {
		return true, nil
	}
	if !principal.Role.Valid() || pageKey == "" {
		return false, nil
	}
	row, err := e.store.FindRolePermission(ctx, principal.Role, pageKey)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("rbac: lookup %s/%s: %w", principal.Role, pageKey, err)
	}
	return row.Allows(action), nil
}

// Effective lists every page binding of the principal's role.
func (e *Evaluator) Effective(ctx context.Context, principal shared.Principal) ([]EffectivePermission, error) {
	if !principal.Role.Valid() {
		return nil, nil
	}
	rows, err := e.store.ListRolePermissionsForRole(ctx, principal.Role)
	if err != nil {
		return nil, err
	}
	out := make([]EffectivePermission, 0, len(rows))
	for _, row := range rows {
		out = append(out, EffectivePermission{PageKey: row.PageKey, Flags: row.Flags})
	}
	return out, nil
}
