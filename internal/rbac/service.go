package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/adsuite/backoffice/internal/shared"
)

// ExportVersion is written into every ExportDocument.
const ExportVersion = 1

// ServiceOption customises a Service.
type ServiceOption func(*Service)

// WithViewCascade forces edit and delete off whenever a write leaves view off.
func WithViewCascade(enabled bool) ServiceOption {
	return func(s *Service) { s.cascade = enabled }
}

// WithAuditor records every administrative mutation.
func WithAuditor(a shared.Auditor) ServiceOption {
	return func(s *Service) {
		if a != nil {
			s.audit = a
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// Service orchestrates permission administration.
type Service struct {
	repo      Repository
	validator *validator.Validate
	audit     shared.Auditor
	logger    *slog.Logger
	cascade   bool
	now       func() time.Time
	title     cases.Caser
}

// NewService constructs a Service backed by repo.
func NewService(repo Repository, opts ...ServiceOption) *Service {
	s := &Service{
		repo:      repo,
		validator: shared.NewValidator(),
		audit:     shared.NopAuditor{},
		logger:    slog.Default(),
		now:       time.Now,
		title:     cases.Title(language.English),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListPages returns the page catalog.
func (s *Service) ListPages(ctx context.Context) ([]Page, error) {
	return s.repo.ListPages(ctx)
}

// CreatePage validates input, stores the page, and binds it to every role with
// its default flags.
func (s *Service) CreatePage(ctx context.Context, actor shared.Principal, input PageInput) (Page, error) {
	input = s.normalizePage(input)
	if err := shared.ValidateStruct(s.validator, input); err != nil {
		return Page{}, err
	}
	var page Page
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		var err error
		page, err = repo.CreatePage(ctx, input)
		if err != nil {
			return err
		}
		for _, role := range shared.AllRoles() {
			if _, err := repo.EnsureRolePermission(ctx, role, page.ID, DefaultFlags(role, page.PageKey)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Page{}, err
	}
	s.record(ctx, actor, "page.create", "page", page.ID, map[string]any{"page_key": page.PageKey})
	return page, nil
}

func (s *Service) normalizePage(input PageInput) PageInput {
	input.PageKey = strings.TrimSpace(strings.ToLower(input.PageKey))
	input.DisplayName = strings.TrimSpace(input.DisplayName)
	input.Path = strings.TrimSpace(input.Path)
	input.Description = strings.TrimSpace(input.Description)
	if input.DisplayName == "" && input.PageKey != "" {
		input.DisplayName = s.title.String(strings.ReplaceAll(input.PageKey, "_", " "))
	}
	return input
}

// ListRolePermissions returns bindings matching filter.
func (s *Service) ListRolePermissions(ctx context.Context, filter ListFilter) ([]RolePermission, error) {
	if filter.Role != "" && !filter.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", shared.ErrValidation, filter.Role)
	}
	return s.repo.ListRolePermissions(ctx, filter)
}

// Toggle sets a single action column on a binding.
func (s *Service) Toggle(ctx context.Context, actor shared.Principal, id string, input ToggleInput) (RolePermission, error) {
	if err := shared.ValidateStruct(s.validator, input); err != nil {
		return RolePermission{}, err
	}
	action, err := ParseAction(input.Action)
	if err != nil {
		return RolePermission{}, err
	}
	current, err := s.repo.GetRolePermission(ctx, id)
	if err != nil {
		return RolePermission{}, err
	}
	next := current.Flags.With(action, *input.Allowed)
	if s.cascade {
		if *input.Allowed && action != ActionView && !next.CanView {
			return RolePermission{}, fmt.Errorf("%w: enable view before %s", shared.ErrValidation, action)
		}
		next = next.Cascaded()
	}
	return s.write(ctx, actor, current, next)
}

// SetFlags overwrites all three columns of a binding.
func (s *Service) SetFlags(ctx context.Context, actor shared.Principal, id string, flags Flags) (RolePermission, error) {
	current, err := s.repo.GetRolePermission(ctx, id)
	if err != nil {
		return RolePermission{}, err
	}
	if s.cascade {
		flags = flags.Cascaded()
	}
	return s.write(ctx, actor, current, flags)
}

func (s *Service) write(ctx context.Context, actor shared.Principal, current RolePermission, flags Flags) (RolePermission, error) {
	updated, err := s.repo.UpdateRolePermissionFlags(ctx, current.ID, flags)
	if err != nil {
		return RolePermission{}, err
	}
	s.record(ctx, actor, "role_permission.update", "role_permission", updated.ID, map[string]any{
		"role":     updated.Role.String(),
		"page_key": updated.PageKey,
		"before":   current.Flags,
		"after":    updated.Flags,
	})
	return updated, nil
}

// BulkUpdate applies each item on its own. One failing row does not roll back
// the others; the result slice mirrors items in order.
func (s *Service) BulkUpdate(ctx context.Context, actor shared.Principal, items []BulkItem) []BulkResult {
	results := make([]BulkResult, 0, len(items))
	for _, item := range items {
		res := BulkResult{ID: item.ID}
		if err := shared.ValidateStruct(s.validator, item); err != nil {
			res.Error = err.Error()
			results = append(results, res)
			continue
		}
		updated, err := s.SetFlags(ctx, actor, item.ID, Flags{CanView: item.CanView, CanEdit: item.CanEdit, CanDelete: item.CanDelete})
		if err != nil {
			res.Error = bulkErrorMessage(err)
			if !errors.Is(err, shared.ErrNotFound) && !errors.Is(err, shared.ErrValidation) {
				s.logger.Error("rbac bulk update", slog.String("id", item.ID), slog.Any("error", err))
			}
			results = append(results, res)
			continue
		}
		res.Success = true
		res.Permission = &updated
		results = append(results, res)
	}
	return results
}

func bulkErrorMessage(err error) string {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return "permission not found"
	case errors.Is(err, shared.ErrValidation):
		return err.Error()
	}
	return "update failed"
}

// SeedSummary counts rows created by SeedDefaults.
type SeedSummary struct {
	PagesCreated       int
	PermissionsCreated int
}

// SeedDefaults creates missing catalog pages and any missing (role, page)
// bindings. Existing rows are never modified, so it is safe to run on every start.
func (s *Service) SeedDefaults(ctx context.Context) (SeedSummary, error) {
	var summary SeedSummary
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		for _, input := range DefaultPages() {
			if _, err := repo.GetPageByKey(ctx, input.PageKey); err == nil {
				continue
			} else if !errors.Is(err, shared.ErrNotFound) {
				return err
			}
			if _, err := repo.CreatePage(ctx, input); err != nil {
				return fmt.Errorf("seed page %s: %w", input.PageKey, err)
			}
			summary.PagesCreated++
		}
		pages, err := repo.ListPages(ctx)
		if err != nil {
			return err
		}
		for _, page := range pages {
			for _, role := range shared.AllRoles() {
				created, err := repo.EnsureRolePermission(ctx, role, page.ID, DefaultFlags(role, page.PageKey))
				if err != nil {
					return fmt.Errorf("seed %s/%s: %w", role, page.PageKey, err)
				}
				if created {
					summary.PermissionsCreated++
				}
			}
		}
		return nil
	})
	if err != nil {
		return SeedSummary{}, err
	}
	s.logger.Info("rbac seed complete",
		slog.Int("pages_created", summary.PagesCreated),
		slog.Int("permissions_created", summary.PermissionsCreated))
	return summary, nil
}

// Export captures the full matrix keyed by page key.
func (s *Service) Export(ctx context.Context) (ExportDocument, error) {
	pages, err := s.repo.ListPages(ctx)
	if err != nil {
		return ExportDocument{}, err
	}
	rows, err := s.repo.ListRolePermissions(ctx, ListFilter{})
	if err != nil {
		return ExportDocument{}, err
	}
	doc := ExportDocument{
		Version:     ExportVersion,
		ExportedAt:  s.now().UTC(),
		Pages:       pages,
		Permissions: make([]ExportPermission, 0, len(rows)),
	}
	for _, row := range rows {
		doc.Permissions = append(doc.Permissions, ExportPermission{Role: row.Role, PageKey: row.PageKey, Flags: row.Flags})
	}
	return doc, nil
}

// Import merges doc by page key. Pages missing locally are created; bindings
// are upserted. Rows with an unknown role are skipped and reported.
func (s *Service) Import(ctx context.Context, actor shared.Principal, doc ExportDocument) (ImportSummary, error) {
	if doc.Version != ExportVersion {
		return ImportSummary{}, fmt.Errorf("%w: unsupported export version %d", shared.ErrValidation, doc.Version)
	}
	summary := ImportSummary{}
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		pageIDs := make(map[string]string, len(doc.Pages))
		for _, p := range doc.Pages {
			input := s.normalizePage(PageInput{PageKey: p.PageKey, DisplayName: p.DisplayName, Path: p.Path, Description: p.Description})
			if err := shared.ValidateStruct(s.validator, input); err != nil {
				summary.Skipped = append(summary.Skipped, "page:"+p.PageKey)
				continue
			}
			existing, err := repo.GetPageByKey(ctx, input.PageKey)
			switch {
			case err == nil:
				pageIDs[input.PageKey] = existing.ID
			case errors.Is(err, shared.ErrNotFound):
				created, err := repo.CreatePage(ctx, input)
				if err != nil {
					return err
				}
				pageIDs[input.PageKey] = created.ID
				summary.PagesCreated++
			default:
				return err
			}
		}
		for _, perm := range doc.Permissions {
			perm.PageKey = strings.TrimSpace(strings.ToLower(perm.PageKey))
			if !perm.Role.Valid() {
				summary.Skipped = append(summary.Skipped, fmt.Sprintf("permission:%s/%s", perm.Role, perm.PageKey))
				continue
			}
			pageID, ok := pageIDs[perm.PageKey]
			if !ok {
				page, err := repo.GetPageByKey(ctx, perm.PageKey)
				if err != nil {
					if errors.Is(err, shared.ErrNotFound) {
						summary.Skipped = append(summary.Skipped, fmt.Sprintf("permission:%s/%s", perm.Role, perm.PageKey))
						continue
					}
					return err
				}
				pageID = page.ID
				pageIDs[perm.PageKey] = pageID
			}
			flags := perm.Flags
			if s.cascade {
				flags = flags.Cascaded()
			}
			if _, err := repo.UpsertRolePermission(ctx, perm.Role, pageID, flags); err != nil {
				return err
			}
			summary.PermissionsUpdated++
		}
		return nil
	})
	if err != nil {
		return ImportSummary{}, err
	}
	s.record(ctx, actor, "role_permission.import", "role_permission", "*", map[string]any{
		"pages_created":       summary.PagesCreated,
		"permissions_updated": summary.PermissionsUpdated,
		"skipped":             len(summary.Skipped),
	})
	return summary, nil
}

func (s *Service) record(ctx context.Context, actor shared.Principal, action, entity, entityID string, meta map[string]any) {
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Meta:     meta,
		At:       s.now().UTC(),
	})
	if err != nil {
		s.logger.Warn("rbac audit", slog.String("action", action), slog.Any("error", err))
	}
}
