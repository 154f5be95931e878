package handler

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/GoUserAdmin/GoUserAdmin/internal/auth"
	"github.com/GoUserAdmin/GoUserAdmin/internal/db/controller/user"
	"github.com/GoUserAdmin/GoUserAdmin/internal/db/models"
	"github.com/GoUserAdmin/GoUserAdmin/internal/rbac"
)

// ErrInvalidID is returned when a path parameter is not a positive integer.
var ErrInvalidID = errors.New("invalid id")

var validate = validator.New(validator.WithRequiredStructEnabled()) //nolint:gochecknoglobals

// Error writes {"error": msg} with status.
func Error(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg})
}

// ParseBody decodes the JSON body into out and validates its struct tags.
func ParseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	return validate.Struct(out)
}

// ParseID reads the path parameter name as a positive integer.
func ParseID(c *fiber.Ctx, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidID
	}

	return id, nil
}

// ParseSmallID is ParseID for role and permission ids.
func ParseSmallID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || id == 0 {
		return 0, ErrInvalidID
	}

	return uint(id), nil
}

// Paging reads page and pageSize query parameters and returns limit and offset.
func Paging(c *fiber.Ctx) (page, pageSize, offset int) {
	page = c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}

	pageSize = c.QueryInt("pageSize", DefaultPageSize)
	if pageSize < 1 || pageSize > MaxPageSize {
		pageSize = DefaultPageSize
	}

	return page, pageSize, (page - 1) * pageSize
}

// FromError maps domain errors to a JSON error response. Unknown errors are logged and
// answered with 500.
func FromError(c *fiber.Ctx, err error) error {
	var verr validator.ValidationErrors

	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return Error(c, fiber.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, auth.ErrInsufficientPermissions):
		return Error(c, fiber.StatusForbidden, "Insufficient permissions")
	case errors.Is(err, auth.ErrInvalidOldPassword):
		return Error(c, fiber.StatusBadRequest, "Current password is incorrect")
	case errors.Is(err, auth.ErrInvalidInput), errors.As(err, &verr):
		return Error(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInvalidID), errors.Is(err, rbac.ErrInvalidName), errors.Is(err, rbac.ErrInvalidAction),
		errors.Is(err, user.ErrEmailEmpty):
		return Error(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, user.ErrUserNotFound), errors.Is(err, rbac.ErrUserNotFound):
		return Error(c, fiber.StatusNotFound, "User not found")
	case errors.Is(err, rbac.ErrRoleNotFound):
		return Error(c, fiber.StatusNotFound, "Role not found")
	case errors.Is(err, rbac.ErrPermissionNotFound):
		return Error(c, fiber.StatusNotFound, "Permission not found")
	case errors.Is(err, user.ErrEmailInUse):
		return Error(c, fiber.StatusConflict, "Email already in use")
	case errors.Is(err, rbac.ErrRoleNameExists):
		return Error(c, fiber.StatusConflict, "Role name already exists")
	case errors.Is(err, rbac.ErrPermissionKeyExists):
		return Error(c, fiber.StatusConflict, "Permission key already exists")
	}

	var ferr *fiber.Error
	if errors.As(err, &ferr) {
		return Error(c, ferr.Code, ferr.Message)
	}

	log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("request failed")

	return Error(c, fiber.StatusInternalServerError, "Internal server error")
}

// UserView is the public representation of a user.
type UserView struct {
	ID        uint64   `json:"id"`
	Name      string   `json:"name"`
	Email     string   `json:"email"`
	Roles     []string `json:"roles,omitempty"`
	CreatedAt string   `json:"createdAt"`
	UpdatedAt string   `json:"updatedAt"`
}

// NewUserView builds a UserView without the password hash.
func NewUserView(u *models.User, roles []string) UserView {
	return UserView{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Roles:     roles,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: u.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
