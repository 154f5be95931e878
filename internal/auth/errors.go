package auth

import (
	"errors"

	"github.com/GoUserAdmin/GoUserAdmin/internal/db/controller/user"
)

var (
	// ErrInvalidCredentials is returned by Login for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrAuthenticationRequired is returned when a request carries no usable bearer token.
	ErrAuthenticationRequired = errors.New("authentication required")

	// ErrAuthenticationFailed is returned when the bearer token is rejected.
	// The token reason is wrapped for logging.
	ErrAuthenticationFailed = errors.New("invalid or expired token")

	// ErrInsufficientPermissions is returned when an authenticated principal is denied.
	ErrInsufficientPermissions = errors.New("insufficient permissions")

	// ErrInvalidOldPassword is returned when the provided old password does not match the user's current password.
	ErrInvalidOldPassword = errors.New("invalid old password")

	// ErrInvalidInput is returned when registration or password change input fails validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmailInUse is returned when registering an email that already exists.
	ErrEmailInUse = user.ErrEmailInUse

	// ErrUserNotFound is returned when the user behind a principal no longer exists.
	ErrUserNotFound = user.ErrUserNotFound
)
