package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/alert-bridge/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health        *handlers.HealthHandler
	Events        *handlers.EventsHandler
	Tasks         *handlers.TasksHandler
	Deliveries    *handlers.DeliveriesHandler
	WebhookSecret string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	webhooks := app.Group("/webhooks", WebhookAuth(cfg.WebhookSecret))
	webhooks.Post("/events", cfg.Events.Receive)
	webhooks.Post("/tasks", cfg.Tasks.Receive)

	app.Get("/deliveries", cfg.Deliveries.List)
}
