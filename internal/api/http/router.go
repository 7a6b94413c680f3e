package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/account-service/internal/api/http/handlers"
	"github.com/spec-kit/account-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health   *handlers.HealthHandler
	Accounts *handlers.AccountsHandler
	Metrics  *handlers.MetricsHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/hb", cfg.Health.Heartbeat)
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", cfg.Metrics.Snapshot)
	}

	app.Post("/register", cfg.Accounts.Register)
	app.Post("/login", cfg.Accounts.Login)

	bearer := auth.RequireBearer()
	app.Get("/user_info", bearer, cfg.Accounts.UserInfo)
	app.Post("/logout", bearer, cfg.Accounts.Logout)
	app.Post("/update_info", bearer, cfg.Accounts.UpdateInfo)
	app.Post("/delete_user", bearer, cfg.Accounts.DeleteUser)
}
