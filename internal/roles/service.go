package roles

import (
	"context"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/adsuite/backoffice/internal/shared"
)

// Service lists the role catalog.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListRoles returns every known role in display order with its active user count.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	counts, err := s.repo.CountByRole(ctx)
	if err != nil {
		return nil, err
	}
	title := cases.Title(language.English)
	out := make([]Role, 0, len(shared.AllRoles()))
	for _, r := range shared.AllRoles() {
		out = append(out, Role{
			Key:       r,
			Label:     title.String(strings.ReplaceAll(string(r), "_", " ")),
			IsAdmin:   r.IsAdmin(),
			UserCount: counts[r],
		})
	}
	return out, nil
}
