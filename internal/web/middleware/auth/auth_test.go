package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoUserAdmin/GoUserAdmin/internal/auth"
	"github.com/GoUserAdmin/GoUserAdmin/internal/authz"
	"github.com/GoUserAdmin/GoUserAdmin/internal/token"
)

// fakeAuth accepts "Bearer user-<id>" and grants only the keys in allowed.
type fakeAuth struct {
	allowed map[string]bool
	authErr error
	authzOK bool
}

func (f *fakeAuth) AuthenticateRequest(_ context.Context, header string) (*auth.Principal, error) {
	if f.authErr != nil {
		return nil, f.authErr
	}

	raw := auth.BearerToken(header)
	if raw == "" {
		return nil, auth.ErrAuthenticationRequired
	}

	var id uint64
	if _, err := fmt.Sscanf(raw, "user-%d", &id); err != nil {
		return nil, fmt.Errorf("%w: %w", auth.ErrAuthenticationFailed, token.ErrTokenSignatureInvalid)
	}

	return &auth.Principal{UserID: id, Token: raw}, nil
}

func (f *fakeAuth) AuthorizeRequest(_ context.Context, p *auth.Principal, req authz.Requirement) error {
	if f.authzOK {
		return nil
	}

	if req.Kind == authz.KindSelfOrPermission && req.OwnerID == p.UserID {
		return nil
	}

	if req.Permission == "BROKEN" {
		return errors.New("database is gone")
	}

	if f.allowed[req.Permission] {
		return nil
	}

	return auth.ErrInsufficientPermissions
}

func newApp(f *fakeAuth) (*fiber.App, *int) {
	g := New(f)
	app := fiber.New()
	calls := 0

	h := func(c *fiber.Ctx) error {
		calls++

		p, ok := auth.PrincipalFromContext(c.UserContext())
		if !ok {
			return c.SendStatus(fiber.StatusTeapot)
		}

		return c.JSON(fiber.Map{"user": p.UserID, "locals": UserID(c)})
	}

	api := app.Group("/api", g.Authenticate())
	api.Get("/open", h)
	api.Get("/users", g.RequirePermission("USER_READ"), h)
	api.Get("/users/:id", g.RequireSelfOrPermission("id", "USER_READ"), h)
	api.Get("/broken", g.RequirePermission("BROKEN"), h)

	return app, &calls
}

func do(t *testing.T, app *fiber.App, path, header string) (int, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(fiber.MethodGet, path, nil)
	if header != "" {
		req.Header.Set(fiber.HeaderAuthorization, header)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := map[string]any{}
	_ = json.Unmarshal(body, &out)

	return resp.StatusCode, out
}

func TestGuard(t *testing.T) {
	tests := []struct {
		name        string
		path        string
		header      string
		wantStatus  int
		wantError   string
		wantHandler bool
	}{
		{name: "no header", path: "/api/open", wantStatus: fiber.StatusUnauthorized, wantError: MsgAuthenticationRequired},
		{name: "wrong scheme", path: "/api/open", header: "Basic abc", wantStatus: fiber.StatusUnauthorized, wantError: MsgAuthenticationRequired},
		{name: "bad token", path: "/api/open", header: "Bearer forged", wantStatus: fiber.StatusUnauthorized, wantError: MsgInvalidToken},
		{name: "no requirement", path: "/api/open", header: "Bearer user-1", wantStatus: fiber.StatusOK, wantHandler: true},
		{name: "missing permission", path: "/api/users", header: "Bearer user-1", wantStatus: fiber.StatusForbidden, wantError: MsgInsufficientPermissions},
		{name: "own record", path: "/api/users/1", header: "Bearer user-1", wantStatus: fiber.StatusOK, wantHandler: true},
		{name: "foreign record", path: "/api/users/2", header: "Bearer user-1", wantStatus: fiber.StatusForbidden, wantError: MsgInsufficientPermissions},
		{name: "non numeric owner", path: "/api/users/me", header: "Bearer user-1", wantStatus: fiber.StatusForbidden, wantError: MsgInsufficientPermissions},
		{name: "lookup failure", path: "/api/broken", header: "Bearer user-1", wantStatus: fiber.StatusInternalServerError, wantError: MsgInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, calls := newApp(&fakeAuth{})

			status, body := do(t, app, tt.path, tt.header)
			assert.Equal(t, tt.wantStatus, status)

			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, body["error"])
			}

			if tt.wantHandler {
				assert.Equal(t, 1, *calls)
				assert.InDelta(t, 1, body["user"], 0)
				assert.InDelta(t, 1, body["locals"], 0)
			} else {
				assert.Zero(t, *calls)
			}
		})
	}
}

func TestGuardGrantedPermission(t *testing.T) {
	app, calls := newApp(&fakeAuth{allowed: map[string]bool{"USER_READ": true}})

	status, _ := do(t, app, "/api/users/2", "Bearer user-1")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 1, *calls)
}

func TestGuardInfrastructureFailure(t *testing.T) {
	app, calls := newApp(&fakeAuth{authErr: errors.New("redis: connection refused")})

	status, body := do(t, app, "/api/open", "Bearer user-1")
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, MsgInternalServerError, body["error"])
	assert.Zero(t, *calls)
}

func TestRequireWithoutAuthenticate(t *testing.T) {
	g := New(&fakeAuth{authzOK: true})
	app := fiber.New()
	app.Get("/x", g.RequireRoles("admin"), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	status, body := do(t, app, "/x", "Bearer user-1")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, MsgAuthenticationRequired, body["error"])
}
