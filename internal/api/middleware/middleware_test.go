package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/liveflow/pkg/logging"
	"github.com/maheshrc27/liveflow/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApp(m *AuthMiddleware) *fiber.App {
	app := fiber.New()
	app.Use(Metrics())
	app.Get("/api/me", m.AuthMiddleware(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"owner_id": c.Locals(OwnerIDKey).(int64)})
	})
	app.Get("/ops/ping", m.OpsMiddleware(), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func TestAuthMiddleware(t *testing.T) {
	m := NewAuthMiddleware("secret", "session", "ops", logging.NewDiscardLogger())
	app := newTestApp(m)

	token, err := utils.GenerateToken("secret", 42, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: token})
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/me", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "garbage"})
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestOpsMiddleware(t *testing.T) {
	app := newTestApp(NewAuthMiddleware("secret", "session", "ops", logging.NewDiscardLogger()))

	req := httptest.NewRequest(http.MethodGet, "/ops/ping", nil)
	req.Header.Set("X-Ops-Token", "ops")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req = httptest.NewRequest(http.MethodGet, "/ops/ping", nil)
	req.Header.Set("X-Ops-Token", "nope")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	closed := newTestApp(NewAuthMiddleware("secret", "session", "", logging.NewDiscardLogger()))
	resp, err = closed.Test(httptest.NewRequest(http.MethodGet, "/ops/ping", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
