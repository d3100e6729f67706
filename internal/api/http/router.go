package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/todo-service/internal/api/http/handlers"
	"github.com/spec-kit/todo-service/internal/auth"
	"github.com/spec-kit/todo-service/internal/domain"
	"github.com/spec-kit/todo-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tasks          *handlers.TasksHandler
	Subscription   *handlers.SubscriptionHandler
	Admin          *handlers.AdminHandler
	Webhook        *handlers.WebhookHandler
	AuthMiddleware *auth.AuthMiddleware
	RateLimiter    *RateLimiter
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	// Deliveries authenticate by signature, not by session token.
	app.Post("/webhook/register", cfg.RateLimiter.Handle, cfg.Webhook.Register)

	protected := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated(), cfg.RateLimiter.Handle)
	protected.Get("/me", cfg.Users.Me)

	protected.Get("/tasks", cfg.Tasks.ListTasks)
	protected.Post("/tasks", cfg.Tasks.CreateTask)
	protected.Get("/tasks/:id", cfg.Tasks.GetTask)
	protected.Put("/tasks/:id", cfg.Tasks.UpdateTask)
	protected.Delete("/tasks/:id", cfg.Tasks.DeleteTask)

	protected.Get("/subscription", cfg.Subscription.GetStatus)
	protected.Post("/subscription", cfg.Subscription.Subscribe)

	admin := protected.Group("/admin", auth.RequireRole(domain.RoleAdmin))
	admin.Get("", cfg.Admin.Search)
	admin.Put("", cfg.Admin.Update)
	admin.Delete("", cfg.Admin.DeleteTask)
}
