package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"gorm.io/gorm"

	"github.com/noah-isme/codegrade-api/internal/config"
	"github.com/noah-isme/codegrade-api/internal/utils"
)

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string    `json:"status"`
	Database    string    `json:"database"`
	Broker      string    `json:"broker"`
	Timestamp   time.Time `json:"timestamp"`
	Service     string    `json:"service"`
	Environment string    `json:"environment"`
}

// HealthCheck returns a handler that reports application health, including
// connectivity to the database and the event broker.
func HealthCheck(cfg config.Config, db *gorm.DB, conn *nats.Conn) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Database:    "ok",
			Broker:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
		}

		if db != nil {
			if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Context()) != nil {
				payload.Database = "error"
				payload.Status = "degraded"
			}
		}

		if conn == nil || !conn.IsConnected() {
			payload.Broker = "error"
			payload.Status = "degraded"
		}

		return utils.SendSuccess(c, "service health", payload)
	}
}
