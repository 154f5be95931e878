package rbac

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/GoUserAdmin/GoUserAdmin/internal/db/models"
)

const (
	joinRolePermissions = "JOIN role_permissions ON role_permissions.permission_id = permissions.id"
	joinUserRoles       = "JOIN user_roles ON user_roles.role_id = role_permissions.role_id"
)

// RoleWithPermissions is a role together with the permissions it holds.
type RoleWithPermissions struct {
	models.Role
	Permissions []models.Permission `json:"permissions"`
}

// PermissionWithRoles is a permission together with the roles holding it.
type PermissionWithRoles struct {
	models.Permission
	Roles []models.Role `json:"roles"`
}

// Repository is the gorm backed role and permission store.
// Storage errors are wrapped and returned, never mapped to a negative answer.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a Repository on db.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// DB returns the underlying connection.
func (r *Repository) DB() *gorm.DB {
	return r.db
}

// CreateRole creates a role. Duplicate names yield ErrRoleNameExists.
func (r *Repository) CreateRole(ctx context.Context, name, description string) (*models.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}

	role := models.Role{Name: name, Description: description}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := exists(tx, &models.Role{}, "name = ?", name)
		if err != nil {
			return err
		}

		if taken {
			return ErrRoleNameExists
		}

		return tx.Create(&role).Error
	})
	if err != nil {
		return nil, roleWriteError("create", err)
	}

	return &role, nil
}

// GetRole returns the role with id.
func (r *Repository) GetRole(ctx context.Context, id uint) (*models.Role, error) {
	var role models.Role
	if err := r.db.WithContext(ctx).First(&role, id).Error; err != nil {
		return nil, notFound(err, ErrRoleNotFound, "failed to get role")
	}

	return &role, nil
}

// GetRoleByName returns the role named name.
func (r *Repository) GetRoleByName(ctx context.Context, name string) (*models.Role, error) {
	var role models.Role
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&role).Error; err != nil {
		return nil, notFound(err, ErrRoleNotFound, "failed to get role by name")
	}

	return &role, nil
}

// ListRoles returns all roles ordered by id.
func (r *Repository) ListRoles(ctx context.Context) ([]models.Role, error) {
	var roles []models.Role
	if err := r.db.WithContext(ctx).Order("id").Find(&roles).Error; err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}

	return roles, nil
}

// UpdateRole renames and/or re-describes a role.
func (r *Repository) UpdateRole(ctx context.Context, id uint, name, description string) (*models.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}

	var role models.Role

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&role, id).Error; err != nil {
			return err
		}

		if name != role.Name {
			taken, err := exists(tx, &models.Role{}, "name = ? AND id <> ?", name, id)
			if err != nil {
				return err
			}

			if taken {
				return ErrRoleNameExists
			}
		}

		role.Name = name
		role.Description = description

		return tx.Save(&role).Error
	})
	if err != nil {
		return nil, roleWriteError("update", err)
	}

	return &role, nil
}

// DeleteRole removes a role together with its user and permission assignments.
func (r *Repository) DeleteRole(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", id).Delete(&models.UserRole{}).Error; err != nil {
			return err
		}

		if err := tx.Where("role_id = ?", id).Delete(&models.RolePermission{}).Error; err != nil {
			return err
		}

		res := tx.Delete(&models.Role{}, id)
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			return ErrRoleNotFound
		}

		return nil
	})
	if err != nil {
		return roleWriteError("delete", err)
	}

	return nil
}

// CreatePermission creates a permission. Duplicate keys yield ErrPermissionKeyExists.
func (r *Repository) CreatePermission(ctx context.Context, p models.Permission) (*models.Permission, error) {
	if err := validatePermission(&p); err != nil {
		return nil, err
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := exists(tx, &models.Permission{}, "permission_key = ?", p.Key)
		if err != nil {
			return err
		}

		if taken {
			return ErrPermissionKeyExists
		}

		return tx.Create(&p).Error
	})
	if err != nil {
		return nil, permissionWriteError("create", err)
	}

	return &p, nil
}

// GetPermission returns the permission with id.
func (r *Repository) GetPermission(ctx context.Context, id uint) (*models.Permission, error) {
	var p models.Permission
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, notFound(err, ErrPermissionNotFound, "failed to get permission")
	}

	return &p, nil
}

// GetPermissionByKey returns the permission identified by key.
func (r *Repository) GetPermissionByKey(ctx context.Context, key string) (*models.Permission, error) {
	var p models.Permission
	if err := r.db.WithContext(ctx).Where("permission_key = ?", key).First(&p).Error; err != nil {
		return nil, notFound(err, ErrPermissionNotFound, "failed to get permission by key")
	}

	return &p, nil
}

// ListPermissions returns all permissions, restricted to category when it is not empty.
func (r *Repository) ListPermissions(ctx context.Context, category string) ([]models.Permission, error) {
	q := r.db.WithContext(ctx).Order("id")
	if category != "" {
		q = q.Where("category = ?", category)
	}

	var perms []models.Permission
	if err := q.Find(&perms).Error; err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}

	return perms, nil
}

// UpdatePermission replaces category, action and description of a permission.
// The key is immutable.
func (r *Repository) UpdatePermission(ctx context.Context, id uint, category, action, description string) (*models.Permission, error) {
	if !ValidAction(action) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}

	if strings.TrimSpace(category) == "" {
		return nil, ErrInvalidName
	}

	var p models.Permission

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&p, id).Error; err != nil {
			return err
		}

		p.Category = category
		p.Action = action
		p.Description = description

		return tx.Save(&p).Error
	})
	if err != nil {
		return nil, permissionWriteError("update", err)
	}

	return &p, nil
}

// DeletePermission removes a permission and every role link to it.
func (r *Repository) DeletePermission(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("permission_id = ?", id).Delete(&models.RolePermission{}).Error; err != nil {
			return err
		}

		res := tx.Delete(&models.Permission{}, id)
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			return ErrPermissionNotFound
		}

		return nil
	})
	if err != nil {
		return permissionWriteError("delete", err)
	}

	return nil
}

// GetUserRoles returns the roles assigned to userID ordered by role id.
func (r *Repository) GetUserRoles(ctx context.Context, userID uint64) ([]models.Role, error) {
	var roles []models.Role

	err := r.db.WithContext(ctx).
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ?", userID).
		Order("roles.id").
		Find(&roles).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get user roles: %w", err)
	}

	return roles, nil
}

// GetUserRoleNames is GetUserRoles reduced to names.
func (r *Repository) GetUserRoleNames(ctx context.Context, userID uint64) ([]string, error) {
	roles, err := r.GetUserRoles(ctx, userID)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, role.Name)
	}

	return names, nil
}

// AssignRoleToUser assigns roleID to userID. Assigning an existing pair returns the
// existing assignment and writes nothing.
func (r *Repository) AssignRoleToUser(ctx context.Context, userID uint64, roleID uint) (*models.UserRole, error) {
	ur := models.UserRole{UserID: userID, RoleID: roleID}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := exists(tx, &models.User{}, "id = ?", userID)
		if err != nil {
			return err
		}

		if !found {
			return ErrUserNotFound
		}

		found, err = exists(tx, &models.Role{}, "id = ?", roleID)
		if err != nil {
			return err
		}

		if !found {
			return ErrRoleNotFound
		}

		return tx.Clauses(clause.OnConflict{DoNothing: true}).
			Omit(clause.Associations).
			Create(&ur).Error
	})
	if err != nil {
		if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrRoleNotFound) {
			return nil, err
		}

		return nil, fmt.Errorf("failed to assign role %d to user %d: %w", roleID, userID, err)
	}

	return &ur, nil
}

// RemoveRoleFromUser removes the assignment. Removing a missing pair is not an error.
func (r *Repository) RemoveRoleFromUser(ctx context.Context, userID uint64, roleID uint) error {
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND role_id = ?", userID, roleID).
		Delete(&models.UserRole{}).Error
	if err != nil {
		return fmt.Errorf("failed to remove role %d from user %d: %w", roleID, userID, err)
	}

	return nil
}

// UserHasAnyRole reports whether userID holds at least one of names.
// An empty list is false and does not touch the database.
func (r *Repository) UserHasAnyRole(ctx context.Context, userID uint64, names []string) (bool, error) {
	if len(names) == 0 {
		return false, nil
	}

	var count int64

	err := r.db.WithContext(ctx).Model(&models.UserRole{}).
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("user_roles.user_id = ? AND roles.name IN ?", userID, names).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check user roles: %w", err)
	}

	return count > 0, nil
}

// GetRolePermissions returns the permissions held by roleID ordered by id.
func (r *Repository) GetRolePermissions(ctx context.Context, roleID uint) ([]models.Permission, error) {
	var perms []models.Permission

	err := r.db.WithContext(ctx).
		Joins(joinRolePermissions).
		Where("role_permissions.role_id = ?", roleID).
		Order("permissions.id").
		Find(&perms).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get role permissions: %w", err)
	}

	return perms, nil
}

// GetUserPermissions returns the union of the permissions of all roles of userID,
// each permission once, ordered by id.
func (r *Repository) GetUserPermissions(ctx context.Context, userID uint64) ([]models.Permission, error) {
	var perms []models.Permission

	err := r.db.WithContext(ctx).
		Distinct("permissions.*").
		Joins(joinRolePermissions).
		Joins(joinUserRoles).
		Where("user_roles.user_id = ?", userID).
		Order("permissions.id").
		Find(&perms).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get user permissions: %w", err)
	}

	return perms, nil
}

// UserHasPermission reports whether any role of userID holds the permission key.
func (r *Repository) UserHasPermission(ctx context.Context, userID uint64, key string) (bool, error) {
	var count int64

	err := r.db.WithContext(ctx).Model(&models.Permission{}).
		Joins(joinRolePermissions).
		Joins(joinUserRoles).
		Where("user_roles.user_id = ? AND permissions.permission_key = ?", userID, key).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check user permission: %w", err)
	}

	return count > 0, nil
}

// UserHasPermissionInCategory reports whether any role of userID holds a permission in
// category, restricted to action when it is not empty.
func (r *Repository) UserHasPermissionInCategory(ctx context.Context, userID uint64, category, action string) (bool, error) {
	q := r.db.WithContext(ctx).Model(&models.Permission{}).
		Joins(joinRolePermissions).
		Joins(joinUserRoles).
		Where("user_roles.user_id = ? AND permissions.category = ?", userID, category)

	if action != "" {
		q = q.Where("permissions.action = ?", action)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check user category permission: %w", err)
	}

	return count > 0, nil
}

// AssignPermissionToRole links permissionID to roleID. Existing links are left untouched.
func (r *Repository) AssignPermissionToRole(ctx context.Context, roleID, permissionID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := exists(tx, &models.Role{}, "id = ?", roleID)
		if err != nil {
			return err
		}

		if !found {
			return ErrRoleNotFound
		}

		found, err = exists(tx, &models.Permission{}, "id = ?", permissionID)
		if err != nil {
			return err
		}

		if !found {
			return ErrPermissionNotFound
		}

		return tx.Clauses(clause.OnConflict{DoNothing: true}).
			Omit(clause.Associations).
			Create(&models.RolePermission{RoleID: roleID, PermissionID: permissionID}).Error
	})
	if err != nil {
		if errors.Is(err, ErrRoleNotFound) || errors.Is(err, ErrPermissionNotFound) {
			return err
		}

		return fmt.Errorf("failed to assign permission %d to role %d: %w", permissionID, roleID, err)
	}

	return nil
}

// RemovePermissionFromRole unlinks permissionID from roleID. A missing link is not an error.
func (r *Repository) RemovePermissionFromRole(ctx context.Context, roleID, permissionID uint) error {
	err := r.db.WithContext(ctx).
		Where("role_id = ? AND permission_id = ?", roleID, permissionID).
		Delete(&models.RolePermission{}).Error
	if err != nil {
		return fmt.Errorf("failed to remove permission %d from role %d: %w", permissionID, roleID, err)
	}

	return nil
}

// ListRolesWithPermissions returns every role with its permissions.
func (r *Repository) ListRolesWithPermissions(ctx context.Context) ([]RoleWithPermissions, error) {
	roles, err := r.ListRoles(ctx)
	if err != nil {
		return nil, err
	}

	links, err := r.links(ctx)
	if err != nil {
		return nil, err
	}

	perms, err := r.ListPermissions(ctx, "")
	if err != nil {
		return nil, err
	}

	byID := make(map[uint]models.Permission, len(perms))
	for _, p := range perms {
		byID[p.ID] = p
	}

	out := make([]RoleWithPermissions, 0, len(roles))
	for _, role := range roles {
		rwp := RoleWithPermissions{Role: role, Permissions: []models.Permission{}}

		for _, l := range links {
			if l.RoleID == role.ID {
				rwp.Permissions = append(rwp.Permissions, byID[l.PermissionID])
			}
		}

		out = append(out, rwp)
	}

	return out, nil
}

// ListPermissionsWithRoles returns every permission with the roles holding it.
func (r *Repository) ListPermissionsWithRoles(ctx context.Context) ([]PermissionWithRoles, error) {
	perms, err := r.ListPermissions(ctx, "")
	if err != nil {
		return nil, err
	}

	links, err := r.links(ctx)
	if err != nil {
		return nil, err
	}

	roles, err := r.ListRoles(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[uint]models.Role, len(roles))
	for _, role := range roles {
		byID[role.ID] = role
	}

	out := make([]PermissionWithRoles, 0, len(perms))
	for _, p := range perms {
		pwr := PermissionWithRoles{Permission: p, Roles: []models.Role{}}

		for _, l := range links {
			if l.PermissionID == p.ID {
				pwr.Roles = append(pwr.Roles, byID[l.RoleID])
			}
		}

		out = append(out, pwr)
	}

	return out, nil
}

func (r *Repository) links(ctx context.Context) ([]models.RolePermission, error) {
	var links []models.RolePermission

	err := r.db.WithContext(ctx).
		Order("role_id").Order("permission_id").
		Find(&links).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list role permissions: %w", err)
	}

	return links, nil
}

func validatePermission(p *models.Permission) error {
	p.Key = strings.TrimSpace(p.Key)
	if p.Key == "" || strings.TrimSpace(p.Category) == "" {
		return ErrInvalidName
	}

	if !ValidAction(p.Action) {
		return fmt.Errorf("%w: %q", ErrInvalidAction, p.Action)
	}

	return nil
}

func exists(tx *gorm.DB, model any, query string, args ...any) (bool, error) {
	var count int64
	if err := tx.Model(model).Where(query, args...).Count(&count).Error; err != nil {
		return false, err
	}

	return count > 0, nil
}

func notFound(err, sentinel error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}

	return fmt.Errorf("%s: %w", msg, err)
}

func roleWriteError(op string, err error) error {
	switch {
	case errors.Is(err, ErrRoleNameExists), errors.Is(err, ErrRoleNotFound):
		return err
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrRoleNameExists
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrRoleNotFound
	default:
		return fmt.Errorf("failed to %s role: %w", op, err)
	}
}

func permissionWriteError(op string, err error) error {
	switch {
	case errors.Is(err, ErrPermissionKeyExists), errors.Is(err, ErrPermissionNotFound):
		return err
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrPermissionKeyExists
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrPermissionNotFound
	default:
		return fmt.Errorf("failed to %s permission: %w", op, err)
	}
}
