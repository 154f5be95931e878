// Package authz decides whether an authenticated principal may perform an operation.
//
// Decisions always start from the user's current roles as stored in the repository, never
// from the role snapshot in the token. Permission checks resolve those roles against the
// in-memory role table and ask the repository when the table does not grant. Storage
// failures are returned as errors and never turned into a deny.
package authz

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GoUserAdmin/GoUserAdmin/internal/metrics"
)

const (
	pathTable      = "table"
	pathRepository = "repository"
	pathSelf       = "self"
	pathNone       = "none"

	resultAllow = "allow"
	resultDeny  = "deny"
	resultError = "error"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID uint64
	Email  string
	Name   string
	// Roles is the role snapshot taken when the token was issued. It is informational,
	// authorization decisions do not rely on it.
	Roles []string
	// Token is the raw bearer token the principal authenticated with.
	Token     string
	ExpiresAt time.Time
}

// Store answers authorization questions from live data.
type Store interface {
	GetUserRoleNames(ctx context.Context, userID uint64) ([]string, error)
	UserHasAnyRole(ctx context.Context, userID uint64, names []string) (bool, error)
	UserHasPermission(ctx context.Context, userID uint64, key string) (bool, error)
	UserHasPermissionInCategory(ctx context.Context, userID uint64, category, action string) (bool, error)
}

// RoleTable answers authorization questions for role names from a cache.
type RoleTable interface {
	RoleHasPermission(role, key string) bool
	RoleHasPermissionInCategory(role, category, action string) bool
}

// Engine makes authorization decisions.
type Engine struct {
	store Store
	table RoleTable
}

// New creates an Engine. table may be nil, in which case every decision goes to store.
func New(store Store, table RoleTable) *Engine {
	return &Engine{store: store, table: table}
}

// CheckRole allows when the principal currently holds any of roles. An empty list is a deny.
func (e *Engine) CheckRole(ctx context.Context, p *Principal, roles []string) (bool, error) {
	const kind = "roles"

	if p == nil || len(roles) == 0 {
		return record(kind, pathNone, false, nil)
	}

	ok, err := e.store.UserHasAnyRole(ctx, p.UserID, roles)

	return record(kind, pathRepository, ok, err)
}

// CheckPermission allows when one of the principal's current roles holds key.
func (e *Engine) CheckPermission(ctx context.Context, p *Principal, key string) (bool, error) {
	const kind = "permission"

	if p == nil || key == "" {
		return record(kind, pathNone, false, nil)
	}

	if e.table != nil {
		roles, err := e.store.GetUserRoleNames(ctx, p.UserID)
		if err != nil {
			return record(kind, pathRepository, false, err)
		}

		for _, r := range roles {
			if e.table.RoleHasPermission(r, key) {
				return record(kind, pathTable, true, nil)
			}
		}
	}

	ok, err := e.store.UserHasPermission(ctx, p.UserID, key)

	return record(kind, pathRepository, ok, err)
}

// CheckCategoryPermission allows when one of the principal's current roles holds a permission in
// category. A non-empty action must match as well.
func (e *Engine) CheckCategoryPermission(ctx context.Context, p *Principal, category, action string) (bool, error) {
	const kind = "category"

	if p == nil || category == "" {
		return record(kind, pathNone, false, nil)
	}

	if e.table != nil {
		roles, err := e.store.GetUserRoleNames(ctx, p.UserID)
		if err != nil {
			return record(kind, pathRepository, false, err)
		}

		for _, r := range roles {
			if e.table.RoleHasPermissionInCategory(r, category, action) {
				return record(kind, pathTable, true, nil)
			}
		}
	}

	ok, err := e.store.UserHasPermissionInCategory(ctx, p.UserID, category, action)

	return record(kind, pathRepository, ok, err)
}

// Authorize evaluates req for p.
func (e *Engine) Authorize(ctx context.Context, p *Principal, req Requirement) (bool, error) {
	switch req.Kind {
	case KindNone:
		return true, nil
	case KindRoles:
		return e.CheckRole(ctx, p, req.Roles)
	case KindPermission:
		return e.CheckPermission(ctx, p, req.Permission)
	case KindCategory:
		return e.CheckCategoryPermission(ctx, p, req.Category, req.Action)
	case KindSelfOrPermission:
		if p != nil && req.OwnerID != 0 && p.UserID == req.OwnerID {
			return record("self", pathSelf, true, nil)
		}

		return e.CheckPermission(ctx, p, req.Permission)
	default:
		return false, fmt.Errorf("unknown requirement kind %d", req.Kind)
	}
}

func record(kind, path string, allowed bool, err error) (bool, error) {
	result := resultDeny

	switch {
	case err != nil:
		result = resultError

		log.Error().Err(err).Str("kind", kind).Msg("authorization lookup failed")
	case allowed:
		result = resultAllow
	}

	metrics.AuthzDecisions.WithLabelValues(kind, path, result).Inc()

	if err != nil {
		return false, err
	}

	return allowed, nil
}
