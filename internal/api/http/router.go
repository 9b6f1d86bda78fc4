package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/session-service/internal/api/http/handlers"
	"github.com/spec-kit/session-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	// APIPrefix is the path portion of API_URL; the refresh cookie path is derived from it.
	APIPrefix   string
	Health      *handlers.HealthHandler
	Auth        *handlers.AuthHandler
	AccessGuard *auth.AccessGuard
	Gatherer    prometheus.Gatherer
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	if cfg.Health != nil {
		app.Get("/health/live", cfg.Health.Live)
		app.Get("/health/ready", cfg.Health.Ready)
	}
	if cfg.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	authGroup := app.Group(cfg.APIPrefix + "/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/refresh", cfg.Auth.Refresh)
	authGroup.Post("/logout", cfg.Auth.Logout)
	authGroup.Get("/google", cfg.Auth.GoogleStart)
	authGroup.Get("/google/callback", cfg.Auth.GoogleCallback)

	authGroup.Get("/me", cfg.AccessGuard.Handle, cfg.Auth.Me)
	authGroup.Get("/protected", cfg.AccessGuard.Handle, cfg.Auth.Protected)
}
