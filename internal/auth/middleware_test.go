package auth

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/session-service/pkg/util/errorutil"
)

func guardedApp(t *testing.T) (*fiber.App, *TokenManager) {
	t.Helper()
	tm := NewTokenManager("unit-secret", "session-service", time.Minute)
	guard := NewAccessGuard(tm, NewCookiePolicy(testSessionConfig("development")))

	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
	}})
	app.Get("/me", guard.Handle, func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		if !ok {
			return fiber.ErrInternalServerError
		}
		return c.SendString(identity.UserID)
	})
	return app, tm
}

func TestAccessGuard_Cookie(t *testing.T) {
	t.Parallel()

	app, tm := guardedApp(t)
	token, _, err := tm.GenerateToken("user-1", "a@x.com")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: AccessCookieName, Value: token})
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	require.Equal(t, "user-1", string(body))
}

func TestAccessGuard_BearerHeader(t *testing.T) {
	t.Parallel()

	app, tm := guardedApp(t)
	token, _, err := tm.GenerateToken("user-2", "b@x.com")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAccessGuard_Rejects(t *testing.T) {
	t.Parallel()

	app, _ := guardedApp(t)

	for name, prepare := range map[string]func(*http.Request){
		"missing":       func(*http.Request) {},
		"bad scheme":    func(r *http.Request) { r.Header.Set("Authorization", "Basic abc") },
		"garbage token": func(r *http.Request) { r.AddCookie(&http.Cookie{Name: AccessCookieName, Value: "garbage"}) },
	} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		prepare(req)
		resp, err := app.Test(req)
		require.NoError(t, err, name)
		resp.Body.Close()
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode, name)
	}
}
