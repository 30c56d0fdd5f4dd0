package campaigns

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/adsuite/backoffice/internal/ownership"
	"github.com/adsuite/backoffice/internal/shared"
)

// Service applies client ownership to campaign operations.
type Service struct {
	repo      Repository
	lookup    ownership.ClientLookup
	validator *validator.Validate
}

// NewService constructs a Service.
func NewService(repo Repository, lookup ownership.ClientLookup) *Service {
	return &Service{repo: repo, lookup: lookup, validator: shared.NewValidator()}
}

// List returns the campaigns p may see. The scope is pushed into the query and
// enforced again on the result.
func (s *Service) List(ctx context.Context, p shared.Principal, filter ListFilter, page shared.PageRequest) (shared.PagedResult[Campaign], error) {
	scope, err := ownership.Resolve(ctx, p, s.lookup)
	if err != nil {
		return shared.PagedResult[Campaign]{}, err
	}
	items, total, err := s.repo.List(ctx, scope, filter, page)
	if err != nil {
		return shared.PagedResult[Campaign]{}, err
	}
	visible := ownership.Filter(scope, items, func(c Campaign) string { return c.ClientID })
	if len(visible) != len(items) {
		total = len(visible)
	}
	return shared.NewPagedResult(visible, page, total), nil
}

// Get returns a campaign, or shared.ErrForbidden when it belongs to another client.
func (s *Service) Get(ctx context.Context, p shared.Principal, id string) (Campaign, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return Campaign{}, err
	}
	scope, err := ownership.Resolve(ctx, p, s.lookup)
	if err != nil {
		return Campaign{}, err
	}
	if err := scope.Check(c.ClientID); err != nil {
		return Campaign{}, err
	}
	return c, nil
}

// Create adds a campaign. A client account may only create for its own client.
func (s *Service) Create(ctx context.Context, p shared.Principal, in Input) (Campaign, error) {
	in, err := s.prepare(ctx, p, in)
	if err != nil {
		return Campaign{}, err
	}
	return s.repo.Create(ctx, in)
}

// Update edits a campaign visible to p. It cannot be moved to a client p cannot see.
func (s *Service) Update(ctx context.Context, p shared.Principal, id string, in Input) (Campaign, error) {
	if _, err := s.Get(ctx, p, id); err != nil {
		return Campaign{}, err
	}
	in, err := s.prepare(ctx, p, in)
	if err != nil {
		return Campaign{}, err
	}
	return s.repo.Update(ctx, id, in)
}

// Delete removes a campaign visible to p.
func (s *Service) Delete(ctx context.Context, p shared.Principal, id string) error {
	if _, err := s.Get(ctx, p, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) prepare(ctx context.Context, p shared.Principal, in Input) (Input, error) {
	in.ClientID = strings.TrimSpace(in.ClientID)
	in.Name = strings.TrimSpace(in.Name)
	if in.Status == "" {
		in.Status = StatusDraft
	}
	if err := shared.ValidateStruct(s.validator, in); err != nil {
		return Input{}, err
	}
	scope, err := ownership.Resolve(ctx, p, s.lookup)
	if err != nil {
		return Input{}, err
	}
	if err := scope.Check(in.ClientID); err != nil {
		return Input{}, err
	}
	return in, nil
}
