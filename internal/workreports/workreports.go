// Package workreports stores daily work reports. A report is visible to its
// owner and to admins only.
package workreports

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
	"github.com/adsuite/backoffice/internal/shared"
)

const dateLayout = "2006-01-02"

// Report is one day's work summary.
type Report struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"ownerId"`
	ReportDate time.Time `json:"reportDate"`
	Summary    string    `json:"summary"`
	Hours      float64   `json:"hours"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Input is the create/update payload. ReportDate is YYYY-MM-DD.
type Input struct {
	ReportDate string  `json:"reportDate" validate:"required,datetime=2006-01-02"`
	Summary    string  `json:"summary" validate:"required,max=4000"`
	Hours      float64 `json:"hours" validate:"gte=0,lte=24"`
}

// Repository defines report persistence.
type Repository interface {
	List(ctx context.Context, ownerID string, page shared.PageRequest) ([]Report, int, error)
	Get(ctx context.Context, id string) (Report, error)
	Create(ctx context.Context, r Report) (Report, error)
	Update(ctx context.Context, r Report) (Report, error)
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

const reportColumns = `id, owner_id, report_date, summary, hours::float8, created_at, updated_at`

func scanReport(row pgx.Row) (Report, error) {
	var r Report
	if err := row.Scan(&r.ID, &r.OwnerID, &r.ReportDate, &r.Summary, &r.Hours, &r.CreatedAt, &r.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Report{}, shared.ErrNotFound
		}
		return Report{}, err
	}
	return r, nil
}

// List returns reports, restricted to ownerID when it is not empty.
func (r *PGRepository) List(ctx context.Context, ownerID string, page shared.PageRequest) ([]Report, int, error) {
	where := ""
	var args []any
	if ownerID != "" {
		where = " WHERE owner_id = $1"
		args = append(args, ownerID)
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM work_reports`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, page.Limit(), page.Offset())
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM work_reports%s ORDER BY report_date DESC, created_at DESC LIMIT $%d OFFSET $%d`,
		reportColumns, where, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rep)
	}
	return out, total, rows.Err()
}

// Get fetches a report by id.
func (r *PGRepository) Get(ctx context.Context, id string) (Report, error) {
	return scanReport(r.pool.QueryRow(ctx, `SELECT `+reportColumns+` FROM work_reports WHERE id = $1`, id))
}

// Create inserts a report.
func (r *PGRepository) Create(ctx context.Context, rep Report) (Report, error) {
	return scanReport(r.pool.QueryRow(ctx, `INSERT INTO work_reports (id, owner_id, report_date, summary, hours)
VALUES ($1, $2, $3, $4, $5)
RETURNING `+reportColumns, uuid.NewString(), rep.OwnerID, rep.ReportDate, rep.Summary, rep.Hours))
}

// Update overwrites date, summary, and hours.
func (r *PGRepository) Update(ctx context.Context, rep Report) (Report, error) {
	return scanReport(r.pool.QueryRow(ctx, `UPDATE work_reports SET report_date = $2, summary = $3, hours = $4, updated_at = NOW()
WHERE id = $1
RETURNING `+reportColumns, rep.ID, rep.ReportDate, rep.Summary, rep.Hours))
}

// Delete removes a report.
func (r *PGRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM work_reports WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Service enforces owner-or-admin on every record operation. A record that
// exists but belongs to someone else yields shared.ErrForbidden; a missing one
// yields shared.ErrNotFound.
type Service struct {
	repo      Repository
	validator *validator.Validate
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, validator: shared.NewValidator()}
}

// List returns every report for admins and only the caller's own otherwise.
func (s *Service) List(ctx context.Context, p shared.Principal, page shared.PageRequest) (shared.PagedResult[Report], error) {
	owner := p.ID
	if p.Role.IsAdmin() {
		owner = ""
	}
	items, total, err := s.repo.List(ctx, owner, page)
	if err != nil {
		return shared.PagedResult[Report]{}, err
	}
	if owner != "" {
		visible := items[:0:0]
		for _, rep := range items {
			if rep.OwnerID == owner {
				visible = append(visible, rep)
			}
		}
		if len(visible) != len(items) {
			total = len(visible)
		}
		items = visible
	}
	return shared.NewPagedResult(items, page, total), nil
}

// Get returns a report the caller owns, or any report for admins.
func (s *Service) Get(ctx context.Context, p shared.Principal, id string) (Report, error) {
	rep, err := s.repo.Get(ctx, id)
	if err != nil {
		return Report{}, err
	}
	if err := ownership.RequireOwnerOrAdmin(p, rep.OwnerID); err != nil {
		return Report{}, err
	}
	return rep, nil
}

// Create files a report owned by the caller.
func (s *Service) Create(ctx context.Context, p shared.Principal, in Input) (Report, error) {
	rep, err := s.build(in)
	if err != nil {
		return Report{}, err
	}
	rep.OwnerID = p.ID
	return s.repo.Create(ctx, rep)
}

// Update edits a report the caller may access.
func (s *Service) Update(ctx context.Context, p shared.Principal, id string, in Input) (Report, error) {
	current, err := s.Get(ctx, p, id)
	if err != nil {
		return Report{}, err
	}
	rep, err := s.build(in)
	if err != nil {
		return Report{}, err
	}
	rep.ID = current.ID
	rep.OwnerID = current.OwnerID
	return s.repo.Update(ctx, rep)
}

// Delete removes a report the caller may access.
func (s *Service) Delete(ctx context.Context, p shared.Principal, id string) error {
	if _, err := s.Get(ctx, p, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) build(in Input) (Report, error) {
	in.Summary = strings.TrimSpace(in.Summary)
	in.ReportDate = strings.TrimSpace(in.ReportDate)
	if err := shared.ValidateStruct(s.validator, in); err != nil {
		return Report{}, err
	}
	date, err := time.Parse(dateLayout, in.ReportDate)
	if err != nil {
		return Report{}, fmt.Errorf("%w: reportDate: %v", shared.ErrValidation, err)
	}
	return Report{ReportDate: date, Summary: in.Summary, Hours: in.Hours}, nil
}
