package fiber_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoUserAdmin/GoUserAdmin/internal/logger"
	adapter "github.com/GoUserAdmin/GoUserAdmin/internal/logger/adapter/fiber"
	"github.com/GoUserAdmin/GoUserAdmin/internal/metrics"
)

type accessLine struct {
	IP        string    `json:"ip"`
	Method    string    `json:"method"`
	URI       string    `json:"uri"`
	Route     string    `json:"route"`
	Status    int       `json:"status"`
	Host      string    `json:"host"`
	UserID    uint64    `json:"user_id"`
	Outcome   string    `json:"outcome"`
	Error     string    `json:"error"`
	RequestID string    `json:"request_id"`
	Time      time.Time `json:"time"`
}

func newApp(cfg adapter.Config) *fiber.App {
	app := fiber.New(fiber.Config{CaseSensitive: true, Immutable: true})
	app.Use(adapter.New(cfg))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("hello test")
	})
	app.Get("/checkalive", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})
	app.Get("/users/:id", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Insufficient permissions"})
	})
	app.Get("/boom", func(*fiber.Ctx) error {
		return errors.New("database gone")
	})

	return app
}

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		target string
		cfg    adapter.Config
		want   *accessLine
	}{
		{
			name:   "plain request",
			target: "/",
			want:   &accessLine{Method: fiber.MethodGet, URI: "/", Route: "/", Status: 200, Host: "example.com"},
		},
		{
			name:   "query string kept",
			target: "/?page=2",
			want:   &accessLine{Method: fiber.MethodGet, URI: "/?page=2", Route: "/", Status: 200, Host: "example.com"},
		},
		{
			name:   "route template and outcome",
			target: "/users/42",
			want: &accessLine{
				Method: fiber.MethodGet, URI: "/users/42", Route: "/users/:id",
				Status: 403, Host: "example.com", Outcome: "forbidden",
			},
		},
		{
			name:   "chain error answered by the error handler",
			target: "/boom",
			want: &accessLine{
				Method: fiber.MethodGet, URI: "/boom", Route: "/boom",
				Status: 500, Host: "example.com", Error: "database gone",
			},
		},
		{
			name:   "user id from request",
			target: "/",
			cfg:    adapter.Config{UserID: func(*fiber.Ctx) uint64 { return 7 }},
			want: &accessLine{
				Method: fiber.MethodGet, URI: "/", Route: "/", Status: 200, Host: "example.com", UserID: 7,
			},
		},
		{
			name:   "quiet path not logged",
			target: "/checkalive",
			cfg: adapter.Config{
				Log:   logger.Log{DisableCheckAlive: true},
				Quiet: []string{"/checkalive"},
			},
		},
		{
			name:   "quiet path logged without the switch",
			target: "/checkalive",
			cfg:    adapter.Config{Quiet: []string{"/checkalive"}},
			want: &accessLine{
				Method: fiber.MethodGet, URI: "/checkalive", Route: "/checkalive", Status: 200, Host: "example.com",
			},
		},
		{
			name:   "skipped by next",
			target: "/",
			cfg:    adapter.Config{Next: func(*fiber.Ctx) bool { return true }},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			tt.cfg.Output = &buf

			resp, err := newApp(tt.cfg).Test(httptest.NewRequest(fiber.MethodGet, tt.target, nil))
			require.NoError(t, err)
			_ = resp.Body.Close()

			if tt.want == nil {
				assert.Empty(t, buf.String())

				return
			}

			require.Equal(t, tt.want.Status, resp.StatusCode)

			var got accessLine
			require.NoError(t, json.Unmarshal(buf.Bytes(), &got), buf.String())

			assert.Equal(t, "0.0.0.0", got.IP)
			assert.Equal(t, tt.want.Method, got.Method)
			assert.Equal(t, tt.want.URI, got.URI)
			assert.Equal(t, tt.want.Route, got.Route)
			assert.Equal(t, tt.want.Status, got.Status)
			assert.Equal(t, tt.want.Host, got.Host)
			assert.Equal(t, tt.want.UserID, got.UserID)
			assert.Equal(t, tt.want.Outcome, got.Outcome)
			assert.Equal(t, tt.want.Error, got.Error)
			assert.False(t, got.Time.IsZero())
		})
	}
}

func TestNewCountsRequests(t *testing.T) {
	counter := metrics.HTTPRequests.WithLabelValues(fiber.MethodGet, "/users/:id", "403")
	before := counterValue(t, counter.Write)

	app := newApp(adapter.Config{Output: &bytes.Buffer{}})

	for range 3 {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/users/1", nil))
		require.NoError(t, err)
		_ = resp.Body.Close()
	}

	assert.InDelta(t, before+3, counterValue(t, counter.Write), 0)
}

func counterValue(t *testing.T, write func(*dto.Metric) error) float64 {
	t.Helper()

	var m dto.Metric
	require.NoError(t, write(&m))

	return m.GetCounter().GetValue()
}
