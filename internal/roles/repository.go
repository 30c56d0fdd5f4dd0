package roles

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adsuite/backoffice/internal/shared"
)

// RepositoryPort reports how many accounts hold each role.
type RepositoryPort interface {
	CountByRole(ctx context.Context) (map[shared.Role]int, error)
}

// Repository implements RepositoryPort using PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CountByRole groups active users by role.
func (r *Repository) CountByRole(ctx context.Context) (map[shared.Role]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT role, COUNT(*) FROM users WHERE is_active GROUP BY role`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[shared.Role]int{}
	for rows.Next() {
		var (
			role  string
			count int
		)
		if err := rows.Scan(&role, &count); err != nil {
			return nil, err
		}
		out[shared.Role(role)] = count
	}
	return out, rows.Err()
}
