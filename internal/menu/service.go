package menu

import (
	"context"
	"errors"

	"github.com/adsuite/backoffice/internal/shared"
)

// Service manages per-user menu visibility.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// EnsureDefaults creates the role's default menu for userID if none exists.
func (s *Service) EnsureDefaults(ctx context.Context, userID string, role shared.Role) error {
	_, err := s.repo.Insert(ctx, userID, Defaults(role))
	return err
}

// ForPrincipal returns the caller's menu, creating the default row on first use.
func (s *Service) ForPrincipal(ctx context.Context, p shared.Principal) (UserMenu, error) {
	m, err := s.repo.Get(ctx, p.ID)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return UserMenu{}, err
	}
	if err := s.EnsureDefaults(ctx, p.ID, p.Role); err != nil {
		return UserMenu{}, err
	}
	return s.repo.Get(ctx, p.ID)
}

// Get returns the menu of userID.
func (s *Service) Get(ctx context.Context, userID string) (UserMenu, error) {
	return s.repo.Get(ctx, userID)
}

// Replace overwrites all flags of userID.
func (s *Service) Replace(ctx context.Context, userID string, flags Flags) (UserMenu, error) {
	return s.repo.Replace(ctx, userID, flags)
}

// SetSection toggles one section of userID.
func (s *Service) SetSection(ctx context.Context, userID, section string, value bool) (UserMenu, error) {
	sec, err := ParseSection(section)
	if err != nil {
		return UserMenu{}, err
	}
	return s.repo.SetSection(ctx, userID, sec, value)
}
