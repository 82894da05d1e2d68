package routes

import (
	"context"
	"time"

	"github.com/taskhive/todo-api/internal/auth"
	"github.com/taskhive/todo-api/internal/config"
	"github.com/taskhive/todo-api/internal/logging"
	"github.com/taskhive/todo-api/internal/metrics"
	"github.com/taskhive/todo-api/internal/middleware"
	"github.com/taskhive/todo-api/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// Deps carries everything the route layer needs. Handlers depend on
// the store interfaces, never on a concrete backend.
type Deps struct {
	Config      *config.Config
	Logger      *logrus.Logger
	Middleware  *middleware.Manager
	Users       store.UserStore
	Items       store.ItemStore
	Issuer      *auth.TokenIssuer
	Passwords   auth.PasswordScheme
	StoreHealth func(ctx context.Context) error
}

// Setup configures all API routes
func Setup(app *fiber.App, deps Deps) {
	authHandler := NewAuthHandler(deps.Users, deps.Passwords, deps.Issuer, deps.Logger)
	itemHandler := NewItemHandler(deps.Items, deps.Logger)

	// Health check endpoints (no auth required)
	app.Get("/healthz", healthCheck)
	app.Get("/readyz", readinessCheck(deps))
	app.Get("/version", versionHandler)

	// Metrics endpoint (no auth required)
	app.Get(deps.Config.Observability.MetricsPath, metrics.PrometheusHandler())

	// Global middleware for API routes
	app.Use(metrics.HTTPMetricsMiddleware())
	app.Use(deps.Middleware.ErrorLogger.Handle())
	if deps.Middleware.Idempotency != nil {
		app.Use(deps.Middleware.Idempotency.Handle())
	}

	// Auth routes (public endpoints - no token required)
	app.Post("/register", authHandler.Register)
	app.Post("/login", authHandler.Login)

	// Item routes (require a valid bearer token)
	items := app.Group("/items")
	items.Use(deps.Middleware.Auth.Authenticate())
	items.Get("/", itemHandler.List)
	items.Post("/", itemHandler.Create)
	items.Put("/:id", itemHandler.Update)
	items.Delete("/:id", itemHandler.Delete)

	// 404 handler
	app.Use(notFoundHandler)
}

// healthCheck returns the health status of the service
func healthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service":   "todo-api",
	})
}

// readinessCheck checks if the service is ready to accept traffic
func readinessCheck(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.StoreHealth != nil {
			ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
			defer cancel()
			if err := deps.StoreHealth(ctx); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"status":    "not ready",
					"reason":    "store unavailable",
					"error":     err.Error(),
					"timestamp": time.Now().UTC(),
				})
			}
		}

		if deps.Middleware.RedisClient != nil {
			redisHealthCheck := middleware.RedisHealthCheck(deps.Middleware.RedisClient, deps.Logger)
			if err := redisHealthCheck(); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"status":    "not ready",
					"reason":    "redis unavailable",
					"error":     err.Error(),
					"timestamp": time.Now().UTC(),
				})
			}
		}

		return c.JSON(fiber.Map{
			"status":    "ready",
			"timestamp": time.Now().UTC(),
			"service":   "todo-api",
		})
	}
}

// versionHandler returns version information
func versionHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": "todo-api",
		"version": logging.Version(),
	})
}

// notFoundHandler handles 404 errors
func notFoundHandler(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error": fiber.Map{
			"code":     "NOT_FOUND",
			"message":  "The requested resource was not found",
			"path":     c.Path(),
			"trace_id": c.Get("X-Request-ID"),
		},
	})
}

// respondError writes the standardized error envelope
func respondError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{
			"code":     code,
			"message":  message,
			"trace_id": c.Get("X-Request-ID"),
		},
	})
}
