package campaigns

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adsuite/backoffice/internal/ownership"
	"github.com/adsuite/backoffice/internal/platform/db"
	"github.com/adsuite/backoffice/internal/shared"
)

// Repository defines campaign persistence.
type Repository interface {
	List(ctx context.Context, scope ownership.Scope, filter ListFilter, page shared.PageRequest) ([]Campaign, int, error)
	Get(ctx context.Context, id string) (Campaign, error)
	Create(ctx context.Context, in Input) (Campaign, error)
	Update(ctx context.Context, id string, in Input) (Campaign, error)
	Delete(ctx context.Context, id string) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

var _ Repository = (*PGRepository)(nil)

const campaignColumns = `id, client_id, name, status, budget_cents, created_at, updated_at`

func scanCampaign(row pgx.Row) (Campaign, error) {
	var c Campaign
	if err := row.Scan(&c.ID, &c.ClientID, &c.Name, &c.Status, &c.BudgetCents, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Campaign{}, shared.ErrNotFound
		}
		return Campaign{}, err
	}
	return c, nil
}

// List applies the ownership scope as a SQL predicate.
func (r *PGRepository) List(ctx context.Context, scope ownership.Scope, filter ListFilter, page shared.PageRequest) ([]Campaign, int, error) {
	var (
		conds []string
		args  []any
	)
	if clause, scopeArgs := scope.Where("client_id", len(args)+1); clause != "" {
		conds = append(conds, clause)
		args = append(args, scopeArgs...)
	}
	if filter.ClientID != "" {
		args = append(args, filter.ClientID)
		conds = append(conds, fmt.Sprintf("client_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM campaigns`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, page.Limit(), page.Offset())
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM campaigns%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		campaignColumns, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

// Get fetches a campaign by id.
func (r *PGRepository) Get(ctx context.Context, id string) (Campaign, error) {
	return scanCampaign(r.pool.QueryRow(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, id))
}

// Create inserts a campaign.
func (r *PGRepository) Create(ctx context.Context, in Input) (Campaign, error) {
	c, err := scanCampaign(r.pool.QueryRow(ctx, `INSERT INTO campaigns (id, client_id, name, status, budget_cents)
VALUES ($1, $2, $3, $4, $5)
RETURNING `+campaignColumns, uuid.NewString(), in.ClientID, in.Name, in.Status, in.BudgetCents))
	if err != nil && db.IsForeignKeyViolation(err) {
		return Campaign{}, fmt.Errorf("%w: unknown client", shared.ErrValidation)
	}
	return c, err
}

// Update overwrites a campaign.
func (r *PGRepository) Update(ctx context.Context, id string, in Input) (Campaign, error) {
	c, err := scanCampaign(r.pool.QueryRow(ctx, `UPDATE campaigns
SET client_id = $2, name = $3, status = $4, budget_cents = $5, updated_at = NOW()
WHERE id = $1
RETURNING `+campaignColumns, id, in.ClientID, in.Name, in.Status, in.BudgetCents))
	if err != nil && db.IsForeignKeyViolation(err) {
		return Campaign{}, fmt.Errorf("%w: unknown client", shared.ErrValidation)
	}
	return c, err
}

// Delete removes a campaign.
func (r *PGRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM campaigns WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
