package rbac

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/adsuite/backoffice/internal/shared"
)

type memoryRepo struct {
	mu      sync.Mutex
	pages   map[string]Page
	perms   map[string]RolePermission
	seq     int
	lookups int
	failErr error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{pages: map[string]Page{}, perms: map[string]RolePermission{}}
}

func (m *memoryRepo) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memoryRepo) addPage(key string) Page {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := Page{ID: m.nextID("page"), PageKey: key, DisplayName: key, CreatedAt: time.Now()}
	m.pages[p.ID] = p
	return p
}

func (m *memoryRepo) grant(role shared.Role, key string, flags Flags) RolePermission {
	page, ok := m.pageByKey(key)
	if !ok {
		page = m.addPage(key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rp := RolePermission{ID: m.nextID("rp"), Role: role, PageID: page.ID, PageKey: key, Flags: flags}
	m.perms[rp.ID] = rp
	return rp
}

func (m *memoryRepo) pageByKey(key string) (Page, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.pages {
		if p.PageKey == key {
			return p, true
		}
	}
	return Page{}, false
}

func (m *memoryRepo) FindRolePermission(ctx context.Context, role shared.Role, pageKey string) (RolePermission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	if m.failErr != nil {
		return RolePermission{}, m.failErr
	}
	for _, rp := range m.perms {
		if rp.Role == role && rp.PageKey == pageKey {
			return rp, nil
		}
	}
	return RolePermission{}, shared.ErrNotFound
}

func (m *memoryRepo) ListRolePermissionsForRole(ctx context.Context, role shared.Role) ([]RolePermission, error) {
	return m.ListRolePermissions(ctx, ListFilter{Role: role})
}

func (m *memoryRepo) ListPages(ctx context.Context) ([]Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Page, 0, len(m.pages))
	for _, p := range m.pages {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PageKey < out[j].PageKey })
	return out, nil
}

func (m *memoryRepo) GetPageByKey(ctx context.Context, pageKey string) (Page, error) {
	if p, ok := m.pageByKey(pageKey); ok {
		return p, nil
	}
	return Page{}, shared.ErrNotFound
}

func (m *memoryRepo) CreatePage(ctx context.Context, input PageInput) (Page, error) {
	if _, ok := m.pageByKey(input.PageKey); ok {
		return Page{}, fmt.Errorf("%w: page %q already exists", shared.ErrConflict, input.PageKey)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p := Page{ID: m.nextID("page"), PageKey: input.PageKey, DisplayName: input.DisplayName, Path: input.Path, Description: input.Description, CreatedAt: time.Now()}
	m.pages[p.ID] = p
	return p, nil
}

func (m *memoryRepo) ListRolePermissions(ctx context.Context, filter ListFilter) ([]RolePermission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return nil, m.failErr
	}
	var out []RolePermission
	for _, rp := range m.perms {
		if filter.Role != "" && rp.Role != filter.Role {
			continue
		}
		if filter.PageKey != "" && rp.PageKey != filter.PageKey {
			continue
		}
		out = append(out, rp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Role != out[j].Role {
			return out[i].Role < out[j].Role
		}
		return out[i].PageKey < out[j].PageKey
	})
	return out, nil
}

func (m *memoryRepo) GetRolePermission(ctx context.Context, id string) (RolePermission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rp, ok := m.perms[id]
	if !ok {
		return RolePermission{}, shared.ErrNotFound
	}
	return rp, nil
}

func (m *memoryRepo) UpdateRolePermissionFlags(ctx context.Context, id string, flags Flags) (RolePermission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rp, ok := m.perms[id]
	if !ok {
		return RolePermission{}, shared.ErrNotFound
	}
	rp.Flags = flags
	rp.UpdatedAt = time.Now()
	m.perms[id] = rp
	return rp, nil
}

func (m *memoryRepo) EnsureRolePermission(ctx context.Context, role shared.Role, pageID string, flags Flags) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rp := range m.perms {
		if rp.Role == role && rp.PageID == pageID {
			return false, nil
		}
	}
	page := m.pages[pageID]
	rp := RolePermission{ID: m.nextID("rp"), Role: role, PageID: pageID, PageKey: page.PageKey, Flags: flags}
	m.perms[rp.ID] = rp
	return true, nil
}

func (m *memoryRepo) UpsertRolePermission(ctx context.Context, role shared.Role, pageID string, flags Flags) (RolePermission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	page, ok := m.pages[pageID]
	if !ok {
		return RolePermission{}, shared.ErrNotFound
	}
	for id, rp := range m.perms {
		if rp.Role == role && rp.PageID == pageID {
			rp.Flags = flags
			m.perms[id] = rp
			return rp, nil
		}
	}
	rp := RolePermission{ID: m.nextID("rp"), Role: role, PageID: pageID, PageKey: page.PageKey, Flags: flags}
	m.perms[rp.ID] = rp
	return rp, nil
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, m)
}

var _ Repository = (*memoryRepo)(nil)

type recordingAuditor struct {
	mu   sync.Mutex
	logs []shared.AuditLog
}

func (a *recordingAuditor) Record(ctx context.Context, log shared.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, log)
	return nil
}
