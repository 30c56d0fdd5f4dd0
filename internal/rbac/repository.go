package rbac

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adsuite/backoffice/internal/platform/db"
	"github.com/adsuite/backoffice/internal/shared"
)

// Store is the permission store consulted by the evaluator and the admin service.
type Store interface {
	// FindRolePermission returns the row for (role, pageKey), or shared.ErrNotFound
	// when either the page or the binding is missing.
	FindRolePermission(ctx context.Context, role shared.Role, pageKey string) (RolePermission, error)
	ListRolePermissionsForRole(ctx context.Context, role shared.Role) ([]RolePermission, error)
}

// Repository extends Store with the write side used by administration.
type Repository interface {
	Store
	ListPages(ctx context.Context) ([]Page, error)
	GetPageByKey(ctx context.Context, pageKey string) (Page, error)
	CreatePage(ctx context.Context, input PageInput) (Page, error)
	ListRolePermissions(ctx context.Context, filter ListFilter) ([]RolePermission, error)
	GetRolePermission(ctx context.Context, id string) (RolePermission, error)
	UpdateRolePermissionFlags(ctx context.Context, id string, flags Flags) (RolePermission, error)
	// EnsureRolePermission inserts flags for (role, pageID) only when no row exists.
	EnsureRolePermission(ctx context.Context, role shared.Role, pageID string, flags Flags) (bool, error)
	UpsertRolePermission(ctx context.Context, role shared.Role, pageID string, flags Flags) (RolePermission, error)
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
	q    db.Querier
}

// NewRepository constructs a PostgreSQL-backed repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool, q: pool}
}

var _ Repository = (*PGRepository)(nil)

// WithTx runs fn with a repository bound to a single transaction.
func (r *PGRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	if r.pool == nil {
		return fn(ctx, r)
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &PGRepository{q: tx})
	})
}

const rolePermissionColumns = `rp.id, rp.role, rp.page_id, p.page_key, rp.can_view, rp.can_edit, rp.can_delete, rp.updated_at`

func scanRolePermission(row pgx.Row) (RolePermission, error) {
	var (
		rp   RolePermission
		role string
	)
	if err := row.Scan(&rp.ID, &role, &rp.PageID, &rp.PageKey, &rp.CanView, &rp.CanEdit, &rp.CanDelete, &rp.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RolePermission{}, shared.ErrNotFound
		}
		return RolePermission{}, err
	}
	rp.Role = shared.Role(role)
	return rp, nil
}

func collectRolePermissions(rows pgx.Rows) ([]RolePermission, error) {
	defer rows.Close()
	var out []RolePermission
	for rows.Next() {
		rp, err := scanRolePermission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rp)
	}
	return out, rows.Err()
}

// FindRolePermission performs the single indexed lookup used on every gated request.
func (r *PGRepository) FindRolePermission(ctx context.Context, role shared.Role, pageKey string) (RolePermission, error) {
	row := r.q.QueryRow(ctx, `SELECT `+rolePermissionColumns+`
FROM role_permissions rp
JOIN pages p ON p.id = rp.page_id
WHERE rp.role = $1 AND p.page_key = $2`, string(role), pageKey)
	return scanRolePermission(row)
}

// ListRolePermissionsForRole returns every binding held by role.
func (r *PGRepository) ListRolePermissionsForRole(ctx context.Context, role shared.Role) ([]RolePermission, error) {
	return r.ListRolePermissions(ctx, ListFilter{Role: role})
}

// ListRolePermissions returns bindings ordered by role then page key.
func (r *PGRepository) ListRolePermissions(ctx context.Context, filter ListFilter) ([]RolePermission, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Role != "" {
		args = append(args, string(filter.Role))
		conds = append(conds, fmt.Sprintf("rp.role = $%d", len(args)))
	}
	if filter.PageKey != "" {
		args = append(args, filter.PageKey)
		conds = append(conds, fmt.Sprintf("p.page_key = $%d", len(args)))
	}
	query := `SELECT ` + rolePermissionColumns + `
FROM role_permissions rp
JOIN pages p ON p.id = rp.page_id`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY rp.role, p.page_key"
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectRolePermissions(rows)
}

// GetRolePermission fetches a binding by id.
func (r *PGRepository) GetRolePermission(ctx context.Context, id string) (RolePermission, error) {
	row := r.q.QueryRow(ctx, `SELECT `+rolePermissionColumns+`
FROM role_permissions rp
JOIN pages p ON p.id = rp.page_id
WHERE rp.id = $1`, id)
	return scanRolePermission(row)
}

// UpdateRolePermissionFlags overwrites all three columns of a binding.
func (r *PGRepository) UpdateRolePermissionFlags(ctx context.Context, id string, flags Flags) (RolePermission, error) {
	tag, err := r.q.Exec(ctx, `UPDATE role_permissions
SET can_view = $2, can_edit = $3, can_delete = $4, updated_at = NOW()
WHERE id = $1`, id, flags.CanView, flags.CanEdit, flags.CanDelete)
	if err != nil {
		return RolePermission{}, err
	}
	if tag.RowsAffected() == 0 {
		return RolePermission{}, shared.ErrNotFound
	}
	return r.GetRolePermission(ctx, id)
}

// EnsureRolePermission reports whether a new row was inserted.
func (r *PGRepository) EnsureRolePermission(ctx context.Context, role shared.Role, pageID string, flags Flags) (bool, error) {
	tag, err := r.q.Exec(ctx, `INSERT INTO role_permissions (id, role, page_id, can_view, can_edit, can_delete)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (role, page_id) DO NOTHING`, uuid.NewString(), string(role), pageID, flags.CanView, flags.CanEdit, flags.CanDelete)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// UpsertRolePermission writes flags for (role, pageID), creating the row if needed.
func (r *PGRepository) UpsertRolePermission(ctx context.Context, role shared.Role, pageID string, flags Flags) (RolePermission, error) {
	var id string
	err := r.q.QueryRow(ctx, `INSERT INTO role_permissions (id, role, page_id, can_view, can_edit, can_delete)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (role, page_id) DO UPDATE
SET can_view = EXCLUDED.can_view, can_edit = EXCLUDED.can_edit, can_delete = EXCLUDED.can_delete, updated_at = NOW()
RETURNING id`, uuid.NewString(), string(role), pageID, flags.CanView, flags.CanEdit, flags.CanDelete).Scan(&id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return RolePermission{}, shared.ErrNotFound
		}
		return RolePermission{}, err
	}
	return r.GetRolePermission(ctx, id)
}

// ListPages returns the catalog ordered by page key.
func (r *PGRepository) ListPages(ctx context.Context) ([]Page, error) {
	rows, err := r.q.Query(ctx, `SELECT id, page_key, display_name, path, description, created_at FROM pages ORDER BY page_key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var pages []Page
	for rows.Next() {
		var p Page
		if err := rows.Scan(&p.ID, &p.PageKey, &p.DisplayName, &p.Path, &p.Description, &p.CreatedAt); err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// GetPageByKey fetches a page by its stable key.
func (r *PGRepository) GetPageByKey(ctx context.Context, pageKey string) (Page, error) {
	var p Page
	err := r.q.QueryRow(ctx, `SELECT id, page_key, display_name, path, description, created_at FROM pages WHERE page_key = $1`, pageKey).
		Scan(&p.ID, &p.PageKey, &p.DisplayName, &p.Path, &p.Description, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Page{}, shared.ErrNotFound
		}
		return Page{}, err
	}
	return p, nil
}

// CreatePage inserts a page. A duplicate key yields shared.ErrConflict.
func (r *PGRepository) CreatePage(ctx context.Context, input PageInput) (Page, error) {
	p := Page{
		ID:          uuid.NewString(),
		PageKey:     input.PageKey,
		DisplayName: input.DisplayName,
		Path:        input.Path,
		Description: input.Description,
	}
	err := r.q.QueryRow(ctx, `INSERT INTO pages (id, page_key, display_name, path, description)
VALUES ($1, $2, $3, $4, $5)
RETURNING created_at`, p.ID, p.PageKey, p.DisplayName, p.Path, p.Description).Scan(&p.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Page{}, fmt.Errorf("%w: page %q already exists", shared.ErrConflict, input.PageKey)
		}
		return Page{}, err
	}
	return p, nil
}
