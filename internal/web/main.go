// Package web assembles the fiber application serving the JSON API.
package web

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog/log"

	accesslog "github.com/GoUserAdmin/GoUserAdmin/internal/logger/adapter/fiber"
	"github.com/GoUserAdmin/GoUserAdmin/internal/metrics"
	"github.com/GoUserAdmin/GoUserAdmin/internal/web/handler"
	"github.com/GoUserAdmin/GoUserAdmin/internal/web/handler/account"
	"github.com/GoUserAdmin/GoUserAdmin/internal/web/handler/admin/permission"
	"github.com/GoUserAdmin/GoUserAdmin/internal/web/handler/admin/role"
	"github.com/GoUserAdmin/GoUserAdmin/internal/web/handler/admin/user"
	"github.com/GoUserAdmin/GoUserAdmin/internal/web/handler/login"
	"github.com/GoUserAdmin/GoUserAdmin/internal/web/handler/logout"
	authmiddleware "github.com/GoUserAdmin/GoUserAdmin/internal/web/middleware/auth"
)

const (
	// APIPath prefixes every API route.
	APIPath = "/api"

	// CheckAlivePath answers load balancer health checks.
	CheckAlivePath = "/checkalive"

	// MetricsPath exposes prometheus metrics.
	MetricsPath = "/metrics"
)

// Service represents the web service.
type Service struct {
	App          *fiber.App
	deps         *handler.Deps
	fastShutDown bool
	alive        atomic.Bool
}

// Start starts the web service on the given address and blocks until it stops.
func (s *Service) Start(addr string) error {
	s.alive.Store(true)

	if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// WaitShutdown waits for SIGINT or SIGTERM and shuts the server down gracefully.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	s.Shutdown()
}

// Shutdown fails the check alive endpoint for the configured time, then stops the server.
func (s *Service) Shutdown() {
	// Graceful shutdown for reverse proxies: set status to fail, so checkalive returns fail.
	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 while %d seconds to let LB to remove this pod from active targets",
			s.deps.Cfg.Webserver.ShutDownTime,
		)

		s.alive.Store(false)
		time.Sleep(time.Duration(s.deps.Cfg.Webserver.ShutDownTime) * time.Second)
	}

	log.Info().Msg("stopping http server ...")

	if err := s.App.Shutdown(); err != nil {
		log.Error().Err(err).Msg("")
	}

	log.Info().Msg("http server was stopped ... good bye...")
}

// New creates a new web service serving the API on deps.
func New(deps *handler.Deps) (*Service, error) {
	if !deps.Valid() {
		return nil, errors.New(handler.ErrNilDepsFatalLogMsg)
	}

	cfg := deps.Cfg

	app := fiber.New(
		fiber.Config{
			AppName:       cfg.Title,
			CaseSensitive: true,
			Prefork:       false,
			Immutable:     true,
			BodyLimit:     cfg.Webserver.BodyLimit,
			ErrorHandler:  errorHandler,
		},
	)

	service := &Service{
		App:          app,
		deps:         deps,
		fastShutDown: cfg.DevMode || cfg.Webserver.ShutDownTime <= 0,
	}
	service.alive.Store(true)

	if !cfg.Webserver.DisableRecover {
		app.Use(recover.New(recover.Config{EnableStackTrace: cfg.DevMode}))
	}

	app.Use(requestid.New())
	app.Use(accesslog.New(accesslog.Config{
		Log:    cfg.Log,
		Quiet:  []string{CheckAlivePath, MetricsPath},
		UserID: authmiddleware.UserID,
	}))

	app.Get(CheckAlivePath, service.checkAlive)
	app.Get(MetricsPath, metrics.Handler())

	api := app.Group(APIPath)

	authGroup := api.Group(handler.AuthPath)
	if err := login.Handler.Init(authGroup, deps); err != nil {
		return nil, err
	}

	if err := logout.Handler.Init(authGroup, deps); err != nil {
		return nil, err
	}

	if err := account.Handler.Init(authGroup, deps); err != nil {
		return nil, err
	}

	// each handler authenticates per route, so unknown /api paths still reach the 404 below
	for _, h := range []handler.Service{&user.Handler, &role.Handler, &permission.Handler} {
		if err := h.Init(api, deps); err != nil {
			return nil, err
		}
	}

	app.Use(func(c *fiber.Ctx) error {
		return handler.Error(c, fiber.StatusNotFound, "Not found")
	})

	return service, nil
}

// Addr returns the listen address built from the configured port.
func Addr(port int) string {
	return ":" + strconv.Itoa(port)
}

func (s *Service) checkAlive(c *fiber.Ctx) error {
	if !s.alive.Load() {
		return c.SendStatus(fiber.StatusServiceUnavailable)
	}

	return c.SendString("OK")
}

// errorHandler answers errors escaping the handlers in the API's JSON shape.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Internal server error"

	var ferr *fiber.Error
	if errors.As(err, &ferr) {
		code = ferr.Code
		msg = ferr.Message
	} else {
		log.Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
	}

	return c.Status(code).JSON(fiber.Map{"error": msg})
}
