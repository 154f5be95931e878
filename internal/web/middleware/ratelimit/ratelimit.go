// Package ratelimit throttles requests per client IP with token buckets.
package ratelimit

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

const (
	// DefaultPerSecond is the refill rate used when none is configured.
	DefaultPerSecond = 1.0
	// DefaultBurst is the bucket size used when none is configured.
	DefaultBurst = 10

	idleTTL = 5 * time.Minute
)

// Config for New.
type Config struct {
	PerSecond float64
	Burst     int

	// Key identifies the client. Default: c.IP().
	Key func(c *fiber.Ctx) string

	now func() time.Time
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

type limiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	lastPrune time.Time
	cfg       Config
}

// New returns a handler answering 429 once a client exhausts its bucket.
func New(cfg Config) fiber.Handler {
	if cfg.PerSecond <= 0 {
		cfg.PerSecond = DefaultPerSecond
	}

	if cfg.Burst <= 0 {
		cfg.Burst = DefaultBurst
	}

	if cfg.Key == nil {
		cfg.Key = func(c *fiber.Ctx) string { return c.IP() }
	}

	if cfg.now == nil {
		cfg.now = time.Now
	}

	l := &limiter{buckets: make(map[string]*bucket), cfg: cfg}

	return func(c *fiber.Ctx) error {
		key := cfg.Key(c)
		if key == "" {
			key = "unknown"
		}

		if !l.allow(key) {
			c.Set(fiber.HeaderRetryAfter, "1")

			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "Too many requests"})
		}

		return c.Next()
	}
}

func (l *limiter) allow(key string) bool {
	now := l.cfg.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastPrune) > time.Minute {
		for k, b := range l.buckets {
			if now.Sub(b.seen) > idleTTL {
				delete(l.buckets, k)
			}
		}

		l.lastPrune = now
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rate.Limit(l.cfg.PerSecond), l.cfg.Burst)}
		l.buckets[key] = b
	}

	b.seen = now

	return b.lim.AllowN(now, 1)
}
