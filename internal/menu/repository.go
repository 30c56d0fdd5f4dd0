package menu

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adsuite/backoffice/internal/platform/db"
	"github.com/adsuite/backoffice/internal/shared"
)

// Repository defines persistence for user menus.
type Repository interface {
	Get(ctx context.Context, userID string) (UserMenu, error)
	Insert(ctx context.Context, userID string, flags Flags) (bool, error)
	Replace(ctx context.Context, userID string, flags Flags) (UserMenu, error)
	SetSection(ctx context.Context, userID string, section Section, value bool) (UserMenu, error)
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

const menuColumns = `user_id, show_dashboard, show_campaigns, show_clients, show_ad_accounts, show_work_reports,
show_finance, show_salary, show_client_mailbox, show_admin, updated_at`

func scanMenu(row pgx.Row) (UserMenu, error) {
	var m UserMenu
	err := row.Scan(&m.UserID, &m.ShowDashboard, &m.ShowCampaigns, &m.ShowClients, &m.ShowAdAccounts, &m.ShowWorkReports,
		&m.ShowFinance, &m.ShowSalary, &m.ShowClientMailbox, &m.ShowAdmin, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return UserMenu{}, shared.ErrNotFound
		}
		return UserMenu{}, err
	}
	return m, nil
}

func flagArgs(userID string, f Flags) []any {
	return []any{userID, f.ShowDashboard, f.ShowCampaigns, f.ShowClients, f.ShowAdAccounts, f.ShowWorkReports,
		f.ShowFinance, f.ShowSalary, f.ShowClientMailbox, f.ShowAdmin}
}

// Get fetches the menu row of a user.
func (r *PGRepository) Get(ctx context.Context, userID string) (UserMenu, error) {
	return scanMenu(r.pool.QueryRow(ctx, `SELECT `+menuColumns+` FROM user_menu_permissions WHERE user_id = $1`, userID))
}

// Insert writes flags only when the user has no row yet.
func (r *PGRepository) Insert(ctx context.Context, userID string, flags Flags) (bool, error) {
	tag, err := r.pool.Exec(ctx, `INSERT INTO user_menu_permissions (user_id, show_dashboard, show_campaigns, show_clients,
show_ad_accounts, show_work_reports, show_finance, show_salary, show_client_mailbox, show_admin)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (user_id) DO NOTHING`, flagArgs(userID, flags)...)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return false, shared.ErrNotFound
		}
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Replace overwrites every flag, creating the row when needed.
func (r *PGRepository) Replace(ctx context.Context, userID string, flags Flags) (UserMenu, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO user_menu_permissions (user_id, show_dashboard, show_campaigns, show_clients,
show_ad_accounts, show_work_reports, show_finance, show_salary, show_client_mailbox, show_admin)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (user_id) DO UPDATE SET
show_dashboard = EXCLUDED.show_dashboard, show_campaigns = EXCLUDED.show_campaigns, show_clients = EXCLUDED.show_clients,
show_ad_accounts = EXCLUDED.show_ad_accounts, show_work_reports = EXCLUDED.show_work_reports, show_finance = EXCLUDED.show_finance,
show_salary = EXCLUDED.show_salary, show_client_mailbox = EXCLUDED.show_client_mailbox, show_admin = EXCLUDED.show_admin,
updated_at = NOW()
RETURNING `+menuColumns, flagArgs(userID, flags)...)
	m, err := scanMenu(row)
	if err != nil && db.IsForeignKeyViolation(err) {
		return UserMenu{}, shared.ErrNotFound
	}
	return m, err
}

// SetSection upserts a single flag. The column name comes from Section.column,
// never from request input.
func (r *PGRepository) SetSection(ctx context.Context, userID string, section Section, value bool) (UserMenu, error) {
	col, ok := section.column()
	if !ok {
		return UserMenu{}, fmt.Errorf("%w: unknown menu section", shared.ErrValidation)
	}
	query := fmt.Sprintf(`INSERT INTO user_menu_permissions (user_id, %[1]s) VALUES ($1, $2)
ON CONFLICT (user_id) DO UPDATE SET %[1]s = EXCLUDED.%[1]s, updated_at = NOW()
RETURNING %[2]s`, col, menuColumns)
	m, err := scanMenu(r.pool.QueryRow(ctx, query, userID, value))
	if err != nil && db.IsForeignKeyViolation(err) {
		return UserMenu{}, shared.ErrNotFound
	}
	return m, err
}
