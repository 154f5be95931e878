package rbac

import "errors"

var (
	// ErrRoleNotFound is returned when a role id or name does not exist.
	ErrRoleNotFound = errors.New("role not found")

	// ErrRoleNameExists is returned when creating or renaming a role to a name already in use.
	ErrRoleNameExists = errors.New("role with this name already exists")

	// ErrPermissionNotFound is returned when a permission id or key does not exist.
	ErrPermissionNotFound = errors.New("permission not found")

	// ErrPermissionKeyExists is returned when creating a permission with a key already in use.
	ErrPermissionKeyExists = errors.New("permission with this key already exists")

	// ErrInvalidAction is returned for a permission action outside the supported set.
	ErrInvalidAction = errors.New("invalid permission action")

	// ErrInvalidName is returned for an empty role name or permission key.
	ErrInvalidName = errors.New("name must not be empty")

	// ErrUserNotFound is returned when assigning a role to a user that does not exist.
	ErrUserNotFound = errors.New("user not found")
)
