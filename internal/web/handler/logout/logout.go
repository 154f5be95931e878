// Package logout invalidates the caller's token.
package logout

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/GoUserAdmin/GoUserAdmin/internal/auth"
	"github.com/GoUserAdmin/GoUserAdmin/internal/web/handler"
	authmiddleware "github.com/GoUserAdmin/GoUserAdmin/internal/web/middleware/auth"
	"github.com/GoUserAdmin/GoUserAdmin/internal/web/middleware/ratelimit"
)

// Path is the logout endpoint below the auth group.
const Path = "/logout"

// Service is the logout handler service.
type Service struct {
	handler.Service
	deps *handler.Deps
}

// Handler is the logout handler.
var Handler = Service{} //nolint:gochecknoglobals

// Init registers the route. Logout does not sit behind the guard so that an already
// invalidated token still gets a definite answer.
func (s *Service) Init(router fiber.Router, deps *handler.Deps) error {
	if router == nil || !deps.Valid() {
		return errors.New(handler.ErrNilDepsFatalLogMsg)
	}

	s.deps = deps

	handlers := []fiber.Handler{}
	if rl := deps.Cfg.Auth.RateLimit; rl.Enabled {
		handlers = append(handlers, ratelimit.New(ratelimit.Config{PerSecond: rl.PerSecond, Burst: rl.Burst}))
	}

	router.Post(Path, append(handlers, s.Logout)...)

	return nil
}

// Logout blacklists the bearer token until it expires.
func (s *Service) Logout(c *fiber.Ctx) error {
	already, err := s.deps.Auth.Logout(c.UserContext(), c.Get(fiber.HeaderAuthorization))
	if err != nil {
		if errors.Is(err, auth.ErrAuthenticationRequired) {
			return handler.Error(c, fiber.StatusUnauthorized, authmiddleware.MsgAuthenticationRequired)
		}

		return handler.FromError(c, err)
	}

	if already {
		return c.JSON(fiber.Map{"success": true, "message": "Token was already invalidated"})
	}

	log.Debug().Str("ip", c.IP()).Msg("token invalidated")

	return c.JSON(fiber.Map{"success": true, "message": "Successfully logged out"})
}
