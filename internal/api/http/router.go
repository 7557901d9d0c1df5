package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fieldkit/dispatch-service/internal/api/http/handlers"
	"github.com/fieldkit/dispatch-service/internal/auth"
	"github.com/fieldkit/dispatch-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Escalations    *handlers.EscalationsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Post("", auth.RequireRole(domain.RoleDispatcher, domain.RoleAdmin), cfg.Tickets.CreateTicket)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/transition", cfg.Tickets.RequestTransition)
	tickets.Get("/:id/actions", cfg.Tickets.NextActions)
	tickets.Get("/:id/history", cfg.Tickets.GetHistory)
	tickets.Post("/:id/attachments", auth.RequireRole(domain.RoleTechnician, domain.RoleDispatcher, domain.RoleAdmin), cfg.Tickets.RegisterAttachment)
	tickets.Post("/:id/otp", auth.RequireRole(domain.RoleTechnician, domain.RoleDispatcher, domain.RoleAdmin), cfg.Tickets.IssueOTP)

	escalations := app.Group("/escalations", cfg.AuthMiddleware.Handle)
	escalations.Get("", auth.RequireRole(domain.RoleDispatcher, domain.RoleAdmin), cfg.Escalations.List)
}
