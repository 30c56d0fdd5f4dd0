package users

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/adsuite/backoffice/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context, filter ListFilter, page shared.PageRequest) ([]User, int, error)
	GetUser(ctx context.Context, id string) (User, error)
	CreateUser(ctx context.Context, u User, passwordHash string) (User, error)
	UpdateRole(ctx context.Context, id string, role shared.Role, clientID *string) (User, error)
	ClientIDOf(ctx context.Context, userID string) (*string, error)
}

// MenuInitializer creates the per-user menu row for a new account.
type MenuInitializer interface {
	EnsureDefaults(ctx context.Context, userID string, role shared.Role) error
}

// Service handles user business logic.
type Service struct {
	repo      RepositoryPort
	menus     MenuInitializer
	audit     shared.Auditor
	logger    *slog.Logger
	validator *validator.Validate
	cost      int
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, menus MenuInitializer, audit shared.Auditor, logger *slog.Logger) *Service {
	if audit == nil {
		audit = shared.NopAuditor{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, menus: menus, audit: audit, logger: logger, validator: shared.NewValidator(), cost: bcrypt.DefaultCost}
}

// ListUsers returns one page of users.
func (s *Service) ListUsers(ctx context.Context, filter ListFilter, page shared.PageRequest) (shared.PagedResult[User], error) {
	items, total, err := s.repo.ListUsers(ctx, filter, page)
	if err != nil {
		return shared.PagedResult[User]{}, err
	}
	return shared.NewPagedResult(items, page, total), nil
}

// GetUser returns a single user.
func (s *Service) GetUser(ctx context.Context, id string) (User, error) {
	return s.repo.GetUser(ctx, id)
}

// ClientIDOf exposes the client binding used by ownership scoping.
func (s *Service) ClientIDOf(ctx context.Context, userID string) (*string, error) {
	return s.repo.ClientIDOf(ctx, userID)
}

// CreateUser validates, hashes the password, stores the user, and creates its menu row.
func (s *Service) CreateUser(ctx context.Context, actor shared.Principal, input CreateUserInput) (User, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	if err := shared.ValidateStruct(s.validator, input); err != nil {
		return User{}, err
	}
	role := shared.Role(input.Role)
	clientID, err := checkAssignment(actor, role, input.ClientID)
	if err != nil {
		return User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cost)
	if err != nil {
		return User{}, fmt.Errorf("users: hash password: %w", err)
	}
	created, err := s.repo.CreateUser(ctx, User{
		Username: input.Username,
		FullName: strings.TrimSpace(input.FullName),
		Email:    input.Email,
		Role:     role,
		ClientID: clientID,
		IsActive: true,
	}, string(hash))
	if err != nil {
		return User{}, err
	}
	if s.menus != nil {
		if err := s.menus.EnsureDefaults(ctx, created.ID, created.Role); err != nil {
			s.logger.Warn("create menu permissions", slog.String("user_id", created.ID), slog.Any("error", err))
		}
	}
	s.record(ctx, actor, "user.create", created.ID, map[string]any{"role": created.Role.String()})
	return created, nil
}

// ChangeRole moves a user to a new role.
func (s *Service) ChangeRole(ctx context.Context, actor shared.Principal, id string, input ChangeRoleInput) (User, error) {
	if err := shared.ValidateStruct(s.validator, input); err != nil {
		return User{}, err
	}
	role := shared.Role(input.Role)
	clientID, err := checkAssignment(actor, role, input.ClientID)
	if err != nil {
		return User{}, err
	}
	current, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return User{}, err
	}
	if current.Role == shared.RoleSuperAdmin && actor.Role != shared.RoleSuperAdmin {
		return User{}, shared.ErrForbidden
	}
	updated, err := s.repo.UpdateRole(ctx, id, role, clientID)
	if err != nil {
		return User{}, err
	}
	s.record(ctx, actor, "user.role_change", id, map[string]any{"from": current.Role.String(), "to": role.String()})
	return updated, nil
}

// checkAssignment enforces that only client accounts carry a client id and
// that only a super admin can hand out super_admin.
func checkAssignment(actor shared.Principal, role shared.Role, clientID *string) (*string, error) {
	if role == shared.RoleSuperAdmin && actor.Role != shared.RoleSuperAdmin {
		return nil, shared.ErrForbidden
	}
	hasClient := clientID != nil && strings.TrimSpace(*clientID) != ""
	switch {
	case role == shared.RoleClient && !hasClient:
		return nil, fmt.Errorf("%w: client accounts require clientId", shared.ErrValidation)
	case role != shared.RoleClient && hasClient:
		return nil, fmt.Errorf("%w: clientId is only allowed for client accounts", shared.ErrValidation)
	}
	if !hasClient {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*clientID)
	return &trimmed, nil
}

func (s *Service) record(ctx context.Context, actor shared.Principal, action, id string, meta map[string]any) {
	if err := s.audit.Record(ctx, shared.AuditLog{ActorID: actor.ID, Action: action, Entity: "user", EntityID: id, Meta: meta}); err != nil {
		s.logger.Warn("users audit", slog.String("action", action), slog.Any("error", err))
	}
}

// EnsureBootstrapAdmin creates a super_admin account when none exists yet.
// It reports whether an account was created.
func (s *Service) EnsureBootstrapAdmin(ctx context.Context, username, password string) (bool, error) {
	_, total, err := s.repo.ListUsers(ctx, ListFilter{Role: shared.RoleSuperAdmin}, shared.PageRequest{Page: 1, PerPage: 1})
	if err != nil {
		return false, err
	}
	if total > 0 {
		return false, nil
	}
	system := shared.Principal{ID: "", Username: "system", Role: shared.RoleSuperAdmin}
	if _, err := s.CreateUser(ctx, system, CreateUserInput{
		Username: username,
		Password: password,
		FullName: "Super Admin",
		Role:     string(shared.RoleSuperAdmin),
	}); err != nil {
		return false, err
	}
	return true, nil
}
