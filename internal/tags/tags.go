// Package tags manages the shared label catalogue. Only admins reach it.
package tags

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adsuite/backoffice/internal/platform/db"
	"github.com/adsuite/backoffice/internal/shared"
)

// Tag is a free-form label.
type Tag struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"createdAt"`
}

// Input is the create payload.
type Input struct {
	Name  string `json:"name" validate:"required,max=64"`
	Color string `json:"color" validate:"omitempty,hexcolor"`
}

// Repository defines tag persistence.
type Repository interface {
	List(ctx context.Context) ([]Tag, error)
	Create(ctx context.Context, in Input) (Tag, error)
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

// List returns tags ordered by name.
func (r *PGRepository) List(ctx context.Context) ([]Tag, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, color, created_at FROM tags ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Color, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Create inserts a tag.
func (r *PGRepository) Create(ctx context.Context, in Input) (Tag, error) {
	var t Tag
	err := r.pool.QueryRow(ctx, `INSERT INTO tags (id, name, color) VALUES ($1, $2, $3)
RETURNING id, name, color, created_at`, uuid.NewString(), in.Name, in.Color).
		Scan(&t.ID, &t.Name, &t.Color, &t.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Tag{}, fmt.Errorf("%w: tag %q already exists", shared.ErrConflict, in.Name)
		}
		return Tag{}, err
	}
	return t, nil
}

// Delete removes a tag.
func (r *PGRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tags WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Service validates input and records deletions.
type Service struct {
	repo      Repository
	audit     shared.Auditor
	validator *validator.Validate
}

// NewService constructs a Service. A nil auditor disables auditing.
func NewService(repo Repository, audit shared.Auditor) *Service {
	if audit == nil {
		audit = shared.NopAuditor{}
	}
	return &Service{repo: repo, audit: audit, validator: shared.NewValidator()}
}

// List returns every tag.
func (s *Service) List(ctx context.Context) ([]Tag, error) {
	return s.repo.List(ctx)
}

// Create adds a tag. Names are trimmed and colors lower-cased.
func (s *Service) Create(ctx context.Context, p shared.Principal, in Input) (Tag, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Color = strings.ToLower(strings.TrimSpace(in.Color))
	if err := shared.ValidateStruct(s.validator, in); err != nil {
		return Tag{}, err
	}
	t, err := s.repo.Create(ctx, in)
	if err != nil {
		return Tag{}, err
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: p.ID, Action: "tag.create", Entity: "tag", EntityID: t.ID})
	return t, nil
}

// Delete removes a tag.
func (s *Service) Delete(ctx context.Context, p shared.Principal, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: p.ID, Action: "tag.delete", Entity: "tag", EntityID: id})
	return nil
}
