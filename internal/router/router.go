package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"gorm.io/gorm"

	"github.com/noah-isme/codegrade-api/internal/config"
	"github.com/noah-isme/codegrade-api/internal/handler"
	"github.com/noah-isme/codegrade-api/internal/middleware"
	"github.com/noah-isme/codegrade-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	DB            *gorm.DB
	NATS          *nats.Conn
	EventHandler  *handler.EventHandler
	ReviewHandler *handler.ReviewHandler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.DB, deps.NATS))

	// Sibling backends push lifecycle events here with the shared service key.
	if deps.EventHandler != nil {
		events := api.Group("/events",
			middleware.ServiceAuth(cfg.ServiceAPIKey),
			middleware.RateLimit("events", 120, time.Minute),
		)
		deps.EventHandler.Register(events)
	}

	// Reviewer-facing grading endpoints.
	if deps.ReviewHandler != nil {
		sessions := api.Group("/sessions/:external_session_id",
			middleware.JWTProtected(cfg.JWTSecret),
		)
		deps.ReviewHandler.Register(sessions)
	}
}
