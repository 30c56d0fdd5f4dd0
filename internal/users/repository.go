package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adsuite/backoffice/internal/platform/db"
	"github.com/adsuite/backoffice/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ RepositoryPort = (*Repository)(nil)

const userColumns = `id, username, full_name, email, role, client_id, is_active, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var (
		u        User
		role     string
		clientID pgtype.Text
	)
	if err := row.Scan(&u.ID, &u.Username, &u.FullName, &u.Email, &role, &clientID, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	u.Role = shared.Role(role)
	if clientID.Valid {
		u.ClientID = &clientID.String
	}
	return u, nil
}

func textOrNull(v *string) pgtype.Text {
	if v == nil || *v == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *v, Valid: true}
}

// ListUsers returns one page of users and the total matching count.
func (r *Repository) ListUsers(ctx context.Context, filter ListFilter, page shared.PageRequest) ([]User, int, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Role != "" {
		args = append(args, string(filter.Role))
		conds = append(conds, fmt.Sprintf("role = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conds = append(conds, fmt.Sprintf("(username ILIKE $%d OR full_name ILIKE $%d)", len(args), len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, page.Limit(), page.Offset())
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM users%s ORDER BY username LIMIT $%d OFFSET $%d`,
		userColumns, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

// GetUser fetches a user by id.
func (r *Repository) GetUser(ctx context.Context, id string) (User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// CreateUser inserts a user with an already hashed password.
func (r *Repository) CreateUser(ctx context.Context, u User, passwordHash string) (User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	created, err := scanUser(r.pool.QueryRow(ctx, `INSERT INTO users (id, username, password_hash, full_name, email, role, client_id, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING `+userColumns,
		u.ID, u.Username, passwordHash, u.FullName, u.Email, string(u.Role), textOrNull(u.ClientID), u.IsActive))
	if err != nil {
		return User{}, translateWriteError(err)
	}
	return created, nil
}

// UpdateRole changes role and client binding together.
func (r *Repository) UpdateRole(ctx context.Context, id string, role shared.Role, clientID *string) (User, error) {
	updated, err := scanUser(r.pool.QueryRow(ctx, `UPDATE users SET role = $2, client_id = $3, updated_at = NOW()
WHERE id = $1
RETURNING `+userColumns, id, string(role), textOrNull(clientID)))
	if err != nil {
		return User{}, translateWriteError(err)
	}
	return updated, nil
}

// ClientIDOf returns the client binding of a user.
func (r *Repository) ClientIDOf(ctx context.Context, userID string) (*string, error) {
	var clientID pgtype.Text
	err := r.pool.QueryRow(ctx, `SELECT client_id FROM users WHERE id = $1`, userID).Scan(&clientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if !clientID.Valid {
		return nil, nil
	}
	return &clientID.String, nil
}

func translateWriteError(err error) error {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return err
	case db.IsUniqueViolation(err):
		return fmt.Errorf("%w: username already taken", shared.ErrConflict)
	case db.IsForeignKeyViolation(err):
		return fmt.Errorf("%w: unknown client", shared.ErrValidation)
	}
	return err
}
