package login

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/GoUserAdmin/GoUserAdmin/internal/auth"
	"github.com/GoUserAdmin/GoUserAdmin/internal/web/handler"
	"github.com/GoUserAdmin/GoUserAdmin/internal/web/middleware/ratelimit"
)

const (
	// Path is the login endpoint below the auth group.
	Path = "/login"

	// RegisterPath is the registration endpoint below the auth group.
	RegisterPath = "/register"
)

// Service is the login handler service.
type Service struct {
	handler.Service
	deps *handler.Deps
}

// Handler is the login handler.
var Handler = Service{} //nolint:gochecknoglobals

type loginRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Init registers the routes on router, which is expected to be the auth group.
func (s *Service) Init(router fiber.Router, deps *handler.Deps) error {
	if router == nil || !deps.Valid() {
		return errors.New(handler.ErrNilDepsFatalLogMsg)
	}

	s.deps = deps

	handlers := []fiber.Handler{}
	if rl := deps.Cfg.Auth.RateLimit; rl.Enabled {
		handlers = append(handlers, ratelimit.New(ratelimit.Config{PerSecond: rl.PerSecond, Burst: rl.Burst}))
	}

	router.Post(Path, append(handlers, s.Login)...)
	router.Post(RegisterPath, append(handlers, s.Register)...)

	return nil
}

// Login checks the credentials and answers with a fresh token.
func (s *Service) Login(c *fiber.Ctx) error {
	req := new(loginRequest)
	if err := handler.ParseBody(c, req); err != nil {
		// a malformed login gets the same answer as a wrong password
		return handler.Error(c, fiber.StatusUnauthorized, "Invalid email or password")
	}

	ctx := c.UserContext()

	res, err := s.deps.Auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return handler.FromError(c, err)
	}

	session, err := s.deps.Auth.IssueSession(ctx, &res.User)
	if err != nil {
		return handler.FromError(c, err)
	}

	log.Info().Uint64("user_id", res.User.ID).Msg("user logged in")

	return c.JSON(fiber.Map{
		"user":      handler.NewUserView(&res.User, session.Roles),
		"token":     session.Token,
		"expiresIn": session.ExpiresIn,
		"expiresAt": session.ExpiresAt.UnixMilli(),
	})
}

// Register creates an account. It does not log the user in.
func (s *Service) Register(c *fiber.Ctx) error {
	in := new(auth.RegisterInput)
	if err := c.BodyParser(in); err != nil {
		return handler.Error(c, fiber.StatusBadRequest, ErrInvalidBody.Error())
	}

	u, err := s.deps.Auth.Register(c.UserContext(), *in)
	if err != nil {
		return handler.FromError(c, err)
	}

	roles, err := s.deps.Repo.GetUserRoleNames(c.UserContext(), u.ID)
	if err != nil {
		return handler.FromError(c, err)
	}

	log.Info().Uint64("user_id", u.ID).Msg("user registered")

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"user":    handler.NewUserView(u, roles),
	})
}
