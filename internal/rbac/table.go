package rbac

import (
	"context"
	"sync"
)

// Table is an in-memory role name to permission mapping mirroring the database.
// It is safe for concurrent use. Call Reload after changing roles or permissions.
type Table struct {
	repo *Repository

	mu    sync.RWMutex
	roles map[string]map[string]permissionInfo
}

type permissionInfo struct {
	category string
	action   string
}

// LoadTable builds a Table from the current database content.
func LoadTable(ctx context.Context, repo *Repository) (*Table, error) {
	t := &Table{repo: repo}
	if err := t.Reload(ctx); err != nil {
		return nil, err
	}

	return t, nil
}

// Reload re-reads every role and its permissions from the database.
// On failure the previous content stays in place.
func (t *Table) Reload(ctx context.Context) error {
	list, err := t.repo.ListRolesWithPermissions(ctx)
	if err != nil {
		return err
	}

	roles := make(map[string]map[string]permissionInfo, len(list))
	for _, r := range list {
		perms := make(map[string]permissionInfo, len(r.Permissions))
		for _, p := range r.Permissions {
			perms[p.Key] = permissionInfo{category: p.Category, action: p.Action}
		}

		roles[r.Name] = perms
	}

	t.mu.Lock()
	t.roles = roles
	t.mu.Unlock()

	return nil
}

// RoleHasPermission reports whether role holds key. Unknown roles hold nothing.
func (t *Table) RoleHasPermission(role, key string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	_, ok := t.roles[role][key]

	return ok
}

// RoleHasPermissionInCategory reports whether role holds any permission in category,
// restricted to action when it is not empty.
func (t *Table) RoleHasPermissionInCategory(role, category, action string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, info := range t.roles[role] {
		if info.category != category {
			continue
		}

		if action == "" || info.action == action {
			return true
		}
	}

	return false
}

// Roles returns the names of all known roles.
func (t *Table) Roles() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	names := make([]string, 0, len(t.roles))
	for name := range t.roles {
		names = append(names, name)
	}

	return names
}
