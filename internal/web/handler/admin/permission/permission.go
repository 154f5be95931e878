// Package permission provides the permission catalog endpoints and role-permission links.
package permission

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/GoUserAdmin/GoUserAdmin/internal/auth"
	"github.com/GoUserAdmin/GoUserAdmin/internal/authz"
	"github.com/GoUserAdmin/GoUserAdmin/internal/db/models"
	"github.com/GoUserAdmin/GoUserAdmin/internal/rbac"
	"github.com/GoUserAdmin/GoUserAdmin/internal/web/handler"
	authmiddleware "github.com/GoUserAdmin/GoUserAdmin/internal/web/middleware/auth"
)

// Path is the base path for permission management.
const Path = handler.RootPath + "permissions"

// Service serves the permission endpoints.
type Service struct {
	handler.Service
	deps *handler.Deps
}

// Handler is the exported instance.
var Handler = Service{} //nolint:gochecknoglobals

type createRequest struct {
	Key         string `json:"key"         validate:"required,max=50"`
	Category    string `json:"category"    validate:"required,max=50"`
	Action      string `json:"action"      validate:"required,max=50"`
	Description string `json:"description" validate:"max=255"`
}

type updateRequest struct {
	Category    string `json:"category"    validate:"required,max=50"`
	Action      string `json:"action"      validate:"required,max=50"`
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

	// static paths before /:id
	router.Get(Path, authn, read, s.List)
	router.Get(Path+"/my-permissions", authn, s.Mine)
	router.Get(Path+"/check/:key", authn, s.Check)
	router.Get(Path+"/category/:category", authn, read, s.ByCategory)
	router.Get(Path+"/roles-with-permissions", authn, read, s.RolesWithPermissions)
	router.Get(Path+"/with-roles", authn, read, s.WithRoles)
	router.Post(Path+"/roles/:roleId/:permissionId", authn, write, s.Assign)
	router.Delete(Path+"/roles/:roleId/:permissionId", authn, write, s.Remove)
	router.Post(Path, authn, write, s.Create)
	router.Get(Path+"/:id", authn, read, s.Get)
	router.Put(Path+"/:id", authn, write, s.Update)
	router.Delete(Path+"/:id", authn, write, s.Delete)

	return nil
}

// List returns all permissions, filtered by the category query parameter when present.
func (s *Service) List(c *fiber.Ctx) error {
	perms, err := s.deps.Repo.ListPermissions(c.UserContext(), c.Query("category"))
	if err != nil {
		return handler.FromError(c, err)
	}

	return c.JSON(fiber.Map{"permissions": perms})
}

// ByCategory returns the permissions of one category.
func (s *Service) ByCategory(c *fiber.Ctx) error {
	category := c.Params("category")

	perms, err := s.deps.Repo.ListPermissions(c.UserContext(), category)
	if err != nil {
		return handler.FromError(c, err)
	}

	return c.JSON(fiber.Map{"category": category, "permissions": perms})
}

// Mine returns the permissions of the caller.
func (s *Service) Mine(c *fiber.Ctx) error {
	p, _ := authmiddleware.Principal(c)

	perms, err := s.deps.Repo.GetUserPermissions(c.UserContext(), p.UserID)
	if err != nil {
		return handler.FromError(c, err)
	}

	return c.JSON(fiber.Map{"userId": p.UserID, "permissions": perms})
}

// Check tells the caller whether they hold a permission key.
func (s *Service) Check(c *fiber.Ctx) error {
	p, _ := authmiddleware.Principal(c)
	key := c.Params("key")

	err := s.deps.Auth.AuthorizeRequest(c.UserContext(), p, authz.Permission(key))
	if err != nil && !errors.Is(err, auth.ErrInsufficientPermissions) {
		return handler.FromError(c, err)
	}

	return c.JSON(fiber.Map{"key": key, "hasPermission": err == nil})
}

// RolesWithPermissions returns every role with its permissions.
func (s *Service) RolesWithPermissions(c *fiber.Ctx) error {
	list, err := s.deps.Repo.ListRolesWithPermissions(c.UserContext())
	if err != nil {
		return handler.FromError(c, err)
	}

	return c.JSON(fiber.Map{"roles": list})
}

// WithRoles returns every permission with the roles holding it.
func (s *Service) WithRoles(c *fiber.Ctx) error {
	list, err := s.deps.Repo.ListPermissionsWithRoles(c.UserContext())
	if err != nil {
		return handler.FromError(c, err)
	}

	return c.JSON(fiber.Map{"permissions": list})
}

// Get returns one permission.
func (s *Service) Get(c *fiber.Ctx) error {
	id, err := handler.ParseSmallID(c, "id")
	if err != nil {
		return handler.FromError(c, err)
	}

	perm, err := s.deps.Repo.GetPermission(c.UserContext(), id)
	if err != nil {
		return handler.FromError(c, err)
	}

	return c.JSON(fiber.Map{"permission": perm})
}

// Create adds a permission to the catalog.
func (s *Service) Create(c *fiber.Ctx) error {
	req := new(createRequest)
	if err := handler.ParseBody(c, req); err != nil {
		return handler.FromError(c, err)
	}

	perm, err := s.deps.Repo.CreatePermission(c.UserContext(), models.Permission{
		Key:         req.Key,
		Category:    req.Category,
		Action:      req.Action,
		Description: req.Description,
	})
	if err != nil {
		return handler.FromError(c, err)
	}

	log.Info().Str("permission", perm.Key).Uint64("by", authmiddleware.UserID(c)).Msg("permission created")

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Permission created successfully", "permission": perm})
}

// Update changes category, action or description of a permission. The key is immutable.
func (s *Service) Update(c *fiber.Ctx) error {
	id, err := handler.ParseSmallID(c, "id")
	if err != nil {
		return handler.FromError(c, err)
	}

	req := new(updateRequest)
	if err := handler.ParseBody(c, req); err != nil {
		return handler.FromError(c, err)
	}

	perm, err := s.deps.Repo.UpdatePermission(c.UserContext(), id, req.Category, req.Action, req.Description)
	if err != nil {
		return handler.FromError(c, err)
	}

	s.deps.ReloadTable(c.UserContext())

	return c.JSON(fiber.Map{"message": "Permission updated successfully", "permission": perm})
}

// Delete removes a permission and its role links.
func (s *Service) Delete(c *fiber.Ctx) error {
	id, err := handler.ParseSmallID(c, "id")
	if err != nil {
		return handler.FromError(c, err)
	}

	if err := s.deps.Repo.DeletePermission(c.UserContext(), id); err != nil {
		return handler.FromError(c, err)
	}

	s.deps.ReloadTable(c.UserContext())

	return c.JSON(fiber.Map{"message": "Permission deleted successfully"})
}

// Assign links a permission to a role.
func (s *Service) Assign(c *fiber.Ctx) error {
	roleID, permID, err := ids(c)
	if err != nil {
		return handler.FromError(c, err)
	}

	if err := s.deps.Repo.AssignPermissionToRole(c.UserContext(), roleID, permID); err != nil {
		return handler.FromError(c, err)
	}

	s.deps.ReloadTable(c.UserContext())

	return c.JSON(fiber.Map{"message": "Permission assigned to role successfully"})
}

// Remove unlinks a permission from a role.
func (s *Service) Remove(c *fiber.Ctx) error {
	roleID, permID, err := ids(c)
	if err != nil {
		return handler.FromError(c, err)
	}

	if err := s.deps.Repo.RemovePermissionFromRole(c.UserContext(), roleID, permID); err != nil {
		return handler.FromError(c, err)
	}

	s.deps.ReloadTable(c.UserContext())

	return c.JSON(fiber.Map{"message": "Permission removed from role successfully"})
}

func ids(c *fiber.Ctx) (roleID, permissionID uint, err error) {
	if roleID, err = handler.ParseSmallID(c, "roleId"); err != nil {
		return 0, 0, err
	}

	if permissionID, err = handler.ParseSmallID(c, "permissionId"); err != nil {
		return 0, 0, err
	}

	return roleID, permissionID, nil
}
