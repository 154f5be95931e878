package auth

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/GoUserAdmin/GoUserAdmin/internal/auth"
	"github.com/GoUserAdmin/GoUserAdmin/internal/authz"
)

// Client facing error messages.
const (
	MsgAuthenticationRequired  = "Authentication required"
	MsgInvalidToken            = "Invalid or expired token"
	MsgInsufficientPermissions = "Insufficient permissions"
	MsgInternalServerError     = "Internal server error"
)

const principalLocalsKey = "principal"

// Authenticator is the part of auth.Service the guard relies on.
type Authenticator interface {
	AuthenticateRequest(ctx context.Context, header string) (*auth.Principal, error)
	AuthorizeRequest(ctx context.Context, p *auth.Principal, req authz.Requirement) error
}

// Guard builds authentication and authorization handlers.
type Guard struct {
	svc Authenticator
}

// New creates a Guard backed by svc.
func New(svc Authenticator) *Guard {
	return &Guard{svc: svc}
}

// Authenticate rejects requests without a valid bearer token and attaches the
// principal to the request otherwise.
func (g *Guard) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := g.svc.AuthenticateRequest(c.UserContext(), c.Get(fiber.HeaderAuthorization))
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrAuthenticationRequired):
				return reject(c, fiber.StatusUnauthorized, MsgAuthenticationRequired)
			case errors.Is(err, auth.ErrAuthenticationFailed):
				log.Info().Err(err).Str("ip", c.IP()).Str("path", c.Path()).Msg("token rejected")

				return reject(c, fiber.StatusUnauthorized, MsgInvalidToken)
			default:
				log.Error().Err(err).Str("path", c.Path()).Msg("failed to authenticate request")

				return reject(c, fiber.StatusInternalServerError, MsgInternalServerError)
			}
		}

		c.Locals(principalLocalsKey, p)
		c.SetUserContext(auth.WithPrincipal(c.UserContext(), p))

		return c.Next()
	}
}

// Require rejects requests whose principal does not satisfy req.
func (g *Guard) Require(req authz.Requirement) fiber.Handler {
	return g.require(func(*fiber.Ctx) authz.Requirement { return req })
}

// RequireRoles requires any of names.
func (g *Guard) RequireRoles(names ...string) fiber.Handler {
	return g.Require(authz.Roles(names...))
}

// RequirePermission requires the permission key.
func (g *Guard) RequirePermission(key string) fiber.Handler {
	return g.Require(authz.Permission(key))
}

// RequireCategory requires a permission in category, matching action when it is not empty.
func (g *Guard) RequireCategory(category, action string) fiber.Handler {
	return g.Require(authz.Category(category, action))
}

// RequireSelfOrPermission lets the principal through when the route parameter param equals
// its own user id and otherwise requires key.
func (g *Guard) RequireSelfOrPermission(param, key string) fiber.Handler {
	return g.require(func(c *fiber.Ctx) authz.Requirement {
		owner, err := strconv.ParseUint(c.Params(param), 10, 64)
		if err != nil {
			owner = 0
		}

		return authz.SelfOrPermission(owner, key)
	})
}

func (g *Guard) require(build func(*fiber.Ctx) authz.Requirement) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, ok := Principal(c)
		if !ok {
			return reject(c, fiber.StatusUnauthorized, MsgAuthenticationRequired)
		}

		req := build(c)

		err := g.svc.AuthorizeRequest(c.UserContext(), p, req)
		switch {
		case err == nil:
			return c.Next()
		case errors.Is(err, auth.ErrInsufficientPermissions):
			log.Warn().Uint64("user_id", p.UserID).Str("requirement", req.String()).Str("path", c.Path()).
				Msg("user lacks required permission")

			return reject(c, fiber.StatusForbidden, MsgInsufficientPermissions)
		default:
			log.Error().Err(err).Uint64("user_id", p.UserID).Str("requirement", req.String()).
				Msg("failed to check permission")

			return reject(c, fiber.StatusInternalServerError, MsgInternalServerError)
		}
	}
}

// Principal returns the principal attached by Authenticate.
func Principal(c *fiber.Ctx) (*auth.Principal, bool) {
	p, ok := c.Locals(principalLocalsKey).(*auth.Principal)

	return p, ok && p != nil
}

// UserID returns the authenticated user id of the request or 0.
func UserID(c *fiber.Ctx) uint64 {
	if p, ok := Principal(c); ok {
		return p.UserID
	}

	return 0
}

func reject(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(fiber.Map{"error": msg})
}
