// Package fiber provides the zerolog access log middleware for fiber. It also feeds the
// per route request metrics.
package fiber

import (
	"io"
	"os"
	"path"
	"slices"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/GoUserAdmin/GoUserAdmin/internal/logger"
	"github.com/GoUserAdmin/GoUserAdmin/internal/metrics"
)

// Config of the access log middleware.
type Config struct {
	// Next skips the middleware when it returns true.
	Next func(c *fiber.Ctx) bool

	// Log selects the access log writers.
	Log logger.Log

	// Quiet paths are measured but not logged when Log.DisableCheckAlive is set.
	Quiet []string

	// UserID returns the authenticated user of the request, 0 when anonymous.
	UserID func(c *fiber.Ctx) uint64

	// Output replaces the configured writers when set.
	Output io.Writer
}

// New creates the access log middleware. Errors returned by the chain are answered with
// the app's error handler first so the logged status is the one the client receives.
func New(cfg Config) fiber.Handler {
	accessLogger := zerolog.New(accessWriter(cfg)).With().Timestamp().Logger().Level(zerolog.NoLevel)

	return func(c *fiber.Ctx) error {
		if cfg.Next != nil && cfg.Next(c) {
			return c.Next()
		}

		start := time.Now()

		chainErr := c.Next()
		if chainErr != nil {
			if err := c.App().ErrorHandler(c, chainErr); err != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		elapsed := time.Since(start)
		status := c.Response().StatusCode()
		route := c.Route().Path

		metrics.HTTPRequests.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
		metrics.HTTPDuration.WithLabelValues(c.Method(), route).Observe(elapsed.Seconds())

		if cfg.Log.DisableCheckAlive && slices.Contains(cfg.Quiet, c.Path()) {
			return nil
		}

		uri := c.Path()
		if qs := c.Request().URI().QueryString(); len(qs) > 0 {
			uri += "?" + string(qs)
		}

		event := accessLogger.Log().
			Str("ip", c.IP()).
			Str("method", c.Method()).
			Str("uri", uri).
			Str("route", route).
			Int("status", status).
			Dur("latency", elapsed).
			Bytes("host", c.Request().Host()).
			Str("user_agent", c.Get(fiber.HeaderUserAgent))

		if xff := c.Get(fiber.HeaderXForwardedFor); xff != "" {
			event.Str("forwarded_for", xff)
		}

		if rid := c.GetRespHeader(fiber.HeaderXRequestID); rid != "" {
			event.Str("request_id", rid)
		}

		if cfg.UserID != nil {
			if id := cfg.UserID(c); id != 0 {
				event.Uint64("user_id", id)
			}
		}

		if outcome := outcomeOf(status); outcome != "" {
			event.Str("outcome", outcome)
		}

		if chainErr != nil {
			event.Err(chainErr)
		}

		event.Send()

		return nil
	}
}

// outcomeOf names the access control statuses so rejected requests are easy to filter.
func outcomeOf(status int) string {
	switch status {
	case fiber.StatusUnauthorized:
		return "unauthenticated"
	case fiber.StatusForbidden:
		return "forbidden"
	case fiber.StatusTooManyRequests:
		return "throttled"
	}

	return ""
}

func accessWriter(cfg Config) io.Writer {
	if cfg.Output != nil {
		return cfg.Output
	}

	var writers []io.Writer

	if cfg.Log.File.Enabled {
		if w := newRollingAccessFile(cfg.Log); w != nil {
			writers = append(writers, w)
		}
	}

	// console access log needs both the console logger and the access log switch
	if cfg.Log.Console.Enabled && cfg.Log.EnableAccessLogToConsole {
		if cfg.Log.Console.UseConsoleWriter {
			writers = append(writers, zerolog.ConsoleWriter{Out: os.Stdout, PartsExclude: []string{"level"}})
		} else {
			writers = append(writers, os.Stdout)
		}
	}

	if len(writers) == 0 {
		return io.Discard
	}

	return zerolog.MultiLevelWriter(writers...)
}

// newRollingAccessFile uses lumberjack to create file based access log.
func newRollingAccessFile(cfg logger.Log) io.Writer {
	if cfg.File.Path != "" {
		if err := os.MkdirAll(cfg.File.Path, 0o750); err != nil {
			log.Error().Err(err).Str("path", cfg.File.Path).Msg("can't create log directory")

			return nil
		}
	}

	return &lumberjack.Logger{
		Filename:   path.Join(cfg.File.Path, cfg.File.AccessLog),
		MaxSize:    cfg.File.AccessMaxSize,
		MaxAge:     cfg.File.AccessMaxAge,
		MaxBackups: cfg.File.AccessMaxBackups,
	}
}
