// Package role provides the role management endpoints.
package role

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/GoUserAdmin/GoUserAdmin/internal/rbac"
	"github.com/GoUserAdmin/GoUserAdmin/internal/web/handler"
	authmiddleware "github.com/GoUserAdmin/GoUserAdmin/internal/web/middleware/auth"
)

// Path is the base path for role management.
const Path = handler.RootPath + "roles"

// Service provides CRUD operations for roles.
type Service struct {
	handler.Service
	deps *handler.Deps
}

// Handler is the exported instance.
var Handler = Service{} //nolint:gochecknoglobals

type roleRequest struct {
	Name        string `json:"name"        validate:"required,max=50"`
	Description string `json:"description" validate:"max=255"`
}

// Init registers routes. Every route runs the guard's Authenticate first.
func (s *Service) Init(router fiber.Router, deps *handler.Deps) error {
	if router == nil || !deps.Valid() {
		return errors.New(handler.ErrNilDepsFatalLogMsg)
	}

	s.deps = deps
	g := deps.Guard
	authn := g.Authenticate()

	read := g.RequirePermission(rbac.PermSystemRead)
	write := g.RequirePermission(rbac.PermSystemUpdate)

	router.Get(Path, authn, read, s.List)
	router.Post(Path, authn, write, s.Create)
	router.Get(Path+"/:id", authn, read, s.Get)
	router.Put(Path+"/:id", authn, write, s.Update)
	router.Delete(Path+"/:id", authn, write, s.Delete)
	router.Get(Path+"/:id/permissions", authn, read, s.Permissions)

	return nil
}

// List returns all roles.
func (s *Service) List(c *fiber.Ctx) error {
	roles, err := s.deps.Repo.ListRoles(c.UserContext())
	if err != nil {
		return handler.FromError(c, err)
	}

	return c.JSON(fiber.Map{"roles": roles})
}

// Get returns one role.
func (s *Service) Get(c *fiber.Ctx) error {
	id, err := handler.ParseSmallID(c, "id")
	if err != nil {
		return handler.FromError(c, err)
	}

	role, err := s.deps.Repo.GetRole(c.UserContext(), id)
	if err != nil {
		return handler.FromError(c, err)
	}

	return c.JSON(fiber.Map{"role": role})
}

// Create adds a role without permissions.
func (s *Service) Create(c *fiber.Ctx) error {
	req := new(roleRequest)
	if err := handler.ParseBody(c, req); err != nil {
		return handler.FromError(c, err)
	}

	role, err := s.deps.Repo.CreateRole(c.UserContext(), req.Name, req.Description)
	if err != nil {
		return handler.FromError(c, err)
	}

	s.deps.ReloadTable(c.UserContext())
	log.Info().Str("role", role.Name).Uint64("by", authmiddleware.UserID(c)).Msg("role created")

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Role created successfully", "role": role})
}

// Update renames a role or changes its description.
func (s *Service) Update(c *fiber.Ctx) error {
	id, err := handler.ParseSmallID(c, "id")
	if err != nil {
		return handler.FromError(c, err)
	}

	req := new(roleRequest)
	if err := handler.ParseBody(c, req); err != nil {
		return handler.FromError(c, err)
	}

	role, err := s.deps.Repo.UpdateRole(c.UserContext(), id, req.Name, req.Description)
	if err != nil {
		return handler.FromError(c, err)
	}

	s.deps.ReloadTable(c.UserContext())

	return c.JSON(fiber.Map{"message": "Role updated successfully", "role": role})
}

// Delete removes a role together with its assignments.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, err := handler.ParseSmallID(c, "id")
	if err != nil {
		return handler.FromError(c, err)
	}

	if err := s.deps.Repo.DeleteRole(c.UserContext(), id); err != nil {
		return handler.FromError(c, err)
	}

	s.deps.ReloadTable(c.UserContext())
	log.Info().Uint("role_id", id).Uint64("by", authmiddleware.UserID(c)).Msg("role deleted")

	return c.JSON(fiber.Map{"message": "Role deleted successfully"})
}

// Permissions lists the permissions held by a role.
func (s *Service) Permissions(c *fiber.Ctx) error {
	id, err := handler.ParseSmallID(c, "id")
	if err != nil {
		return handler.FromError(c, err)
	}

	role, err := s.deps.Repo.GetRole(c.UserContext(), id)
	if err != nil {
		return handler.FromError(c, err)
	}

	perms, err := s.deps.Repo.GetRolePermissions(c.UserContext(), id)
	if err != nil {
		return handler.FromError(c, err)
	}

	return c.JSON(fiber.Map{"role": role, "permissions": perms})
}
