// Package metrics holds the prometheus collectors shared by the auth components.
package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gouseradmin"

var (
	// TokenVerifications counts token verifications by result
	// (valid, malformed, expired, signature_invalid, blacklisted, error).
	TokenVerifications = promauto.NewCounterVec( //nolint:gochecknoglobals
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_verifications_total",
			Help:      "Number of token verifications, differentiated by result.",
		},
		[]string{"result"},
	)

	// AuthzDecisions counts authorization decisions.
	// path is "table" when the cached role table granted access, "repository" otherwise.
	AuthzDecisions = promauto.NewCounterVec( //nolint:gochecknoglobals
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authz_decisions_total",
			Help:      "Number of authorization decisions, differentiated by kind, lookup path and result.",
		},
		[]string{"kind", "path", "result"},
	)

	// Logins counts login attempts by result (success, invalid, error).
	Logins = promauto.NewCounterVec( //nolint:gochecknoglobals
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Number of login attempts, differentiated by result.",
		},
		[]string{"result"},
	)
)

// Handler exposes the default prometheus registry as a fiber handler.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}

var (
	// HTTPRequests counts served requests by method, route template and status code.
	HTTPRequests = promauto.NewCounterVec( //nolint:gochecknoglobals
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Number of HTTP requests, differentiated by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPDuration observes request latency by method and route template.
	HTTPDuration = promauto.NewHistogramVec( //nolint:gochecknoglobals
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)
