// Package account serves the authenticated user's own account: profile, token refresh
// and password change.
package account

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/GoUserAdmin/GoUserAdmin/internal/db/controller/user"
	"github.com/GoUserAdmin/GoUserAdmin/internal/web/handler"
	authmiddleware "github.com/GoUserAdmin/GoUserAdmin/internal/web/middleware/auth"
)

const (
	// RefreshPath exchanges the current token for a new one.
	RefreshPath = "/refresh-token"
	// MePath returns the current profile.
	MePath = "/me"
	// PasswordPath changes the current password.
	PasswordPath = "/password"
)

// Service is the account handler service.
type Service struct {
	handler.Service
	deps *handler.Deps
}

// Handler is the account handler.
var Handler = Service{} //nolint:gochecknoglobals

type passwordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

// Init registers the routes on the auth group behind the guard.
func (s *Service) Init(router fiber.Router, deps *handler.Deps) error {
	if router == nil || !deps.Valid() {
		return errors.New(handler.ErrNilDepsFatalLogMsg)
	}

	s.deps = deps

	authenticated := deps.Guard.Authenticate()

	router.Post(RefreshPath, authenticated, s.Refresh)
	router.Get(MePath, authenticated, s.Me)
	router.Put(PasswordPath, authenticated, s.ChangePassword)

	return nil
}

// Refresh invalidates the presented token and returns a new one.
func (s *Service) Refresh(c *fiber.Ctx) error {
	p, _ := authmiddleware.Principal(c)

	session, u, err := s.deps.Auth.Refresh(c.UserContext(), p)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			return handler.Error(c, fiber.StatusUnauthorized, "User not found")
		}

		return handler.FromError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"message":   "Token refreshed successfully",
		"token":     session.Token,
		"expiresIn": session.ExpiresIn,
		"expiresAt": session.ExpiresAt.UnixMilli(),
		"user":      handler.NewUserView(u, session.Roles),
	})
}

// Me returns the current user with roles and permissions.
func (s *Service) Me(c *fiber.Ctx) error {
	p, _ := authmiddleware.Principal(c)

	profile, err := s.deps.Auth.Me(c.UserContext(), p)
	if err != nil {
		return handler.FromError(c, err)
	}

	return c.JSON(fiber.Map{
		"message":     "User profile retrieved",
		"user":        handler.NewUserView(&profile.User, profile.Roles),
		"permissions": profile.Permissions,
	})
}

// ChangePassword replaces the current password. Existing tokens stay valid.
func (s *Service) ChangePassword(c *fiber.Ctx) error {
	p, _ := authmiddleware.Principal(c)

	req := new(passwordRequest)
	if err := handler.ParseBody(c, req); err != nil {
		return handler.FromError(c, err)
	}

	if err := s.deps.Auth.ChangePassword(c.UserContext(), p.UserID, req.OldPassword, req.NewPassword); err != nil {
		return handler.FromError(c, err)
	}

	log.Info().Uint64("user_id", p.UserID).Msg("password changed")

	return c.JSON(fiber.Map{"success": true, "message": "Password changed successfully"})
}
