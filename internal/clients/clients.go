// Package clients manages advertiser client records.
package clients

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adsuite/backoffice/internal/ownership"
	"github.com/adsuite/backoffice/internal/platform/db"
	"github.com/adsuite/backoffice/internal/shared"
)

// Client is an advertiser account.
type Client struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Input is the create/update payload.
type Input struct {
	Name  string `json:"name" validate:"required,max=160"`
	Email string `json:"email" validate:"omitempty,email,max=254"`
}

// Repository defines client persistence.
type Repository interface {
	List(ctx context.Context, scope ownership.Scope, page shared.PageRequest) ([]Client, int, error)
	Get(ctx context.Context, id string) (Client, error)
	Create(ctx context.Context, in Input) (Client, error)
	Update(ctx context.Context, id string, in Input) (Client, error)
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

func scanClient(row pgx.Row) (Client, error) {
	var c Client
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.CreatedAt, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Client{}, shared.ErrNotFound
		}
		return Client{}, err
	}
	return c, nil
}

// List returns clients visible in scope. A client account sees only its own record.
func (r *PGRepository) List(ctx context.Context, scope ownership.Scope, page shared.PageRequest) ([]Client, int, error) {
	where, args := scope.Where("id", 1)
	if where != "" {
		where = " WHERE " + where
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM clients`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, page.Limit(), page.Offset())
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT id, name, email, created_at, updated_at FROM clients%s ORDER BY name LIMIT $%d OFFSET $%d`,
		where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

// Get fetches a client by id.
func (r *PGRepository) Get(ctx context.Context, id string) (Client, error) {
	return scanClient(r.pool.QueryRow(ctx, `SELECT id, name, email, created_at, updated_at FROM clients WHERE id = $1`, id))
}

// Create inserts a client.
func (r *PGRepository) Create(ctx context.Context, in Input) (Client, error) {
	c, err := scanClient(r.pool.QueryRow(ctx, `INSERT INTO clients (id, name, email) VALUES ($1, $2, $3)
RETURNING id, name, email, created_at, updated_at`, uuid.NewString(), in.Name, in.Email))
	if err != nil && db.IsUniqueViolation(err) {
		return Client{}, fmt.Errorf("%w: client name already exists", shared.ErrConflict)
	}
	return c, err
}

// Update overwrites name and email.
func (r *PGRepository) Update(ctx context.Context, id string, in Input) (Client, error) {
	c, err := scanClient(r.pool.QueryRow(ctx, `UPDATE clients SET name = $2, email = $3, updated_at = NOW() WHERE id = $1
RETURNING id, name, email, created_at, updated_at`, id, in.Name, in.Email))
	if err != nil && db.IsUniqueViolation(err) {
		return Client{}, fmt.Errorf("%w: client name already exists", shared.ErrConflict)
	}
	return c, err
}

// Delete removes a client and, by cascade, its campaigns.
func (r *PGRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Service applies ownership scoping on top of the repository.
type Service struct {
	repo      Repository
	lookup    ownership.ClientLookup
	validator *validator.Validate
}

// NewService constructs a Service.
func NewService(repo Repository, lookup ownership.ClientLookup) *Service {
	return &Service{repo: repo, lookup: lookup, validator: shared.NewValidator()}
}

// List returns the clients p may see.
func (s *Service) List(ctx context.Context, p shared.Principal, page shared.PageRequest) (shared.PagedResult[Client], error) {
	scope, err := ownership.Resolve(ctx, p, s.lookup)
	if err != nil {
		return shared.PagedResult[Client]{}, err
	}
	items, total, err := s.repo.List(ctx, scope, page)
	if err != nil {
		return shared.PagedResult[Client]{}, err
	}
	filtered := ownership.Filter(scope, items, func(c Client) string { return c.ID })
	if len(filtered) != len(items) {
		total = len(filtered)
	}
	return shared.NewPagedResult(filtered, page, total), nil
}

// Get returns one client if p may see it.
func (s *Service) Get(ctx context.Context, p shared.Principal, id string) (Client, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return Client{}, err
	}
	if err := s.check(ctx, p, c.ID); err != nil {
		return Client{}, err
	}
	return c, nil
}

// Create adds a client.
func (s *Service) Create(ctx context.Context, p shared.Principal, in Input) (Client, error) {
	in = normalize(in)
	if err := shared.ValidateStruct(s.validator, in); err != nil {
		return Client{}, err
	}
	if p.Role == shared.RoleClient {
		return Client{}, shared.ErrForbidden
	}
	return s.repo.Create(ctx, in)
}

// Update edits a client if p may see it.
func (s *Service) Update(ctx context.Context, p shared.Principal, id string, in Input) (Client, error) {
	in = normalize(in)
	if err := shared.ValidateStruct(s.validator, in); err != nil {
		return Client{}, err
	}
	if _, err := s.Get(ctx, p, id); err != nil {
		return Client{}, err
	}
	return s.repo.Update(ctx, id, in)
}

// Delete removes a client if p may see it.
func (s *Service) Delete(ctx context.Context, p shared.Principal, id string) error {
	if _, err := s.Get(ctx, p, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) check(ctx context.Context, p shared.Principal, clientID string) error {
	scope, err := ownership.Resolve(ctx, p, s.lookup)
	if err != nil {
		return err
	}
	return scope.Check(clientID)
}

func normalize(in Input) Input {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	return in
}
