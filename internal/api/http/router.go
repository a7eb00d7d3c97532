package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/servisdesk/servisdesk/internal/api/http/handlers"
	"github.com/servisdesk/servisdesk/internal/auth"
	"github.com/servisdesk/servisdesk/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Users          *handlers.UsersHandler
	Profile        *handlers.ProfileHandler
	AuthMiddleware *auth.AuthMiddleware
	LoginLimiter   *LoginLimiter
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	authGroup := app.Group("/auth")
	if cfg.LoginLimiter != nil {
		authGroup.Post("/login", cfg.LoginLimiter.Handle, cfg.Auth.Login)
	} else {
		authGroup.Post("/login", cfg.Auth.Login)
	}
	authGroup.Post("/logout", cfg.AuthMiddleware.Handle, cfg.Auth.Logout)
	authGroup.Post("/password/change", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated(), cfg.Auth.ChangePassword)

	protected := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	protected.Get("/dashboard", cfg.Tickets.Dashboard)

	protected.Get("/tickets", cfg.Tickets.ListTickets)
	protected.Post("/tickets", cfg.Tickets.CreateTicket)
	protected.Get("/tickets/:id", cfg.Tickets.GetTicket)
	protected.Patch("/tickets/:id", cfg.Tickets.UpdateTicket)
	protected.Delete("/tickets/:id", cfg.Tickets.DeleteTicket)
	protected.Post("/tickets/:id/assign", cfg.Tickets.AssignTicket)
	protected.Post("/tickets/:id/status", cfg.Tickets.ChangeStatus)
	protected.Post("/tickets/:id/comments", cfg.Tickets.AddComment)

	protected.Get("/profile", cfg.Profile.GetProfile)
	protected.Patch("/profile", cfg.Profile.UpdateProfile)

	users := protected.Group("/users", auth.RequireAdmin())
	users.Get("", cfg.Users.ListUsers)
	users.Post("", cfg.Users.CreateUser)
	users.Get("/:id", cfg.Users.GetUser)
	users.Patch("/:id", cfg.Users.UpdateUser)
	users.Post("/:id/toggle-active", cfg.Users.ToggleActive)
	users.Delete("/:id", cfg.Users.DeleteUser)
}
