// Package user provides handlers for managing users (CRUD) in admin area.
package user

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/GoUserAdmin/GoUserAdmin/internal/auth"
	usercontroller "github.com/GoUserAdmin/GoUserAdmin/internal/db/controller/user"
	"github.com/GoUserAdmin/GoUserAdmin/internal/rbac"
	"github.com/GoUserAdmin/GoUserAdmin/internal/web/handler"
	authmiddleware "github.com/GoUserAdmin/GoUserAdmin/internal/web/middleware/auth"
)

// Path is the base path for user management.
const Path = handler.RootPath + "users"

// Service provides CRUD operations for users.
type Service struct {
	handler.Service
	deps *handler.Deps
}

// Handler is the exported instance.
var Handler = Service{} //nolint:gochecknoglobals

type updateRequest struct {
	Name  string `json:"name"  validate:"omitempty,max=100"`
	Email string `json:"email" validate:"omitempty,email,max=100"`
}

// Init registers routes. Every route runs the guard's Authenticate first.
func (s *Service) Init(router fiber.Router, deps *handler.Deps) error {
	if router == nil || !deps.Valid() {
		return errors.New(handler.ErrNilDepsFatalLogMsg)
	}

	s.deps = deps
	g := deps.Guard
	authn := g.Authenticate()

	router.Get(Path, authn, g.RequirePermission(rbac.PermUserRead), s.List)
	router.Post(Path, authn, g.RequirePermission(rbac.PermUserCreate), s.Create)
	router.Get(Path+"/:id", authn, g.RequireSelfOrPermission("id", rbac.PermUserRead), s.Get)
	router.Put(Path+"/:id", authn, g.RequireSelfOrPermission("id", rbac.PermUserUpdate), s.Update)
	router.Delete(Path+"/:id", authn, g.RequirePermission(rbac.PermUserDelete), s.Delete)
	router.Get(Path+"/:id/roles", authn, g.RequireSelfOrPermission("id", rbac.PermUserRead), s.Roles)
	router.Post(Path+"/:id/roles/:roleId", authn, g.RequirePermission(rbac.PermUserAssignRole), s.AssignRole)
	router.Delete(Path+"/:id/roles/:roleId", authn, g.RequirePermission(rbac.PermUserAssignRole), s.RemoveRole)

	return nil
}

// List shows users with simple pagination.
func (s *Service) List(c *fiber.Ctx) error {
	page, pageSize, offset := handler.Paging(c)

	users, total, err := usercontroller.List(c.UserContext(), s.deps.DB, pageSize, offset)
	if err != nil {
		return handler.FromError(c, err)
	}

	views := make([]handler.UserView, 0, len(users))
	for i := range users {
		views = append(views, handler.NewUserView(&users[i], nil))
	}

	return c.JSON(fiber.Map{
		"users":    views,
		"total":    total,
		"page":     page,
		"pageSize": pageSize,
	})
}

// Create adds a user on behalf of an administrator.
func (s *Service) Create(c *fiber.Ctx) error {
	in := new(auth.RegisterInput)
	if err := c.BodyParser(in); err != nil {
		return handler.Error(c, fiber.StatusBadRequest, "Invalid request body")
	}

	u, err := s.deps.Auth.Register(c.UserContext(), *in)
	if err != nil {
		return handler.FromError(c, err)
	}

	log.Info().Uint64("user_id", u.ID).Uint64("by", authmiddleware.UserID(c)).Msg("user created")

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User created successfully",
		"user":    handler.NewUserView(u, nil),
	})
}

// Get returns one user with role names.
func (s *Service) Get(c *fiber.Ctx) error {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		return handler.FromError(c, err)
	}

	u, err := usercontroller.Get(c.UserContext(), s.deps.DB, id)
	if err != nil {
		return handler.FromError(c, err)
	}

	roles, err := s.deps.Repo.GetUserRoleNames(c.UserContext(), id)
	if err != nil {
		return handler.FromError(c, err)
	}

	return c.JSON(fiber.Map{"user": handler.NewUserView(u, roles)})
}

// Update changes name and/or email.
func (s *Service) Update(c *fiber.Ctx) error {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		return handler.FromError(c, err)
	}

	req := new(updateRequest)
	if err := handler.ParseBody(c, req); err != nil {
		return handler.FromError(c, err)
	}

	u, err := usercontroller.Update(c.UserContext(), s.deps.DB, id, req.Name, req.Email)
	if err != nil {
		return handler.FromError(c, err)
	}

	return c.JSON(fiber.Map{"message": "User updated successfully", "user": handler.NewUserView(u, nil)})
}

// Delete removes a user and their role assignments.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		return handler.FromError(c, err)
	}

	if id == authmiddleware.UserID(c) {
		return handler.Error(c, fiber.StatusBadRequest, "Cannot delete your own account")
	}

	if err := usercontroller.Delete(c.UserContext(), s.deps.DB, id); err != nil {
		return handler.FromError(c, err)
	}

	log.Info().Uint64("user_id", id).Uint64("by", authmiddleware.UserID(c)).Msg("user deleted")

	return c.JSON(fiber.Map{"message": "User deleted successfully"})
}

// Roles lists the roles of a user.
func (s *Service) Roles(c *fiber.Ctx) error {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		return handler.FromError(c, err)
	}

	roles, err := s.deps.Repo.GetUserRoles(c.UserContext(), id)
	if err != nil {
		return handler.FromError(c, err)
	}

	return c.JSON(fiber.Map{"userId": id, "roles": roles})
}

// AssignRole gives a user a role. Assigning twice is not an error.
func (s *Service) AssignRole(c *fiber.Ctx) error {
	id, roleID, err := ids(c)
	if err != nil {
		return handler.FromError(c, err)
	}

	if _, err := s.deps.Repo.AssignRoleToUser(c.UserContext(), id, roleID); err != nil {
		return handler.FromError(c, err)
	}

	return s.respondRoles(c, id, "Role assigned successfully")
}

// RemoveRole takes a role from a user. Removing a missing assignment is not an error.
func (s *Service) RemoveRole(c *fiber.Ctx) error {
	id, roleID, err := ids(c)
	if err != nil {
		return handler.FromError(c, err)
	}

	if err := s.deps.Repo.RemoveRoleFromUser(c.UserContext(), id, roleID); err != nil {
		return handler.FromError(c, err)
	}

	return s.respondRoles(c, id, "Role removed successfully")
}

func (s *Service) respondRoles(c *fiber.Ctx, userID uint64, msg string) error {
	roles, err := s.deps.Repo.GetUserRoles(c.UserContext(), userID)
	if err != nil {
		return handler.FromError(c, err)
	}

	return c.JSON(fiber.Map{"message": msg, "roles": roles})
}

func ids(c *fiber.Ctx) (uint64, uint, error) {
	id, err := handler.ParseID(c, "id")
	if err != nil {
		return 0, 0, err
	}

	roleID, err := handler.ParseSmallID(c, "roleId")
	if err != nil {
		return 0, 0, err
	}

	return id, roleID, nil
}
