package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/codegrade-api/internal/utils"
)

// ServiceAuth guards the event intake endpoint with the shared API key the
// external session system presents in the X-Api-Key header.
func ServiceAuth(apiKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		presented := c.Get("X-Api-Key")
		if presented == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "api key missing")
		}

		if subtle.ConstantTimeCompare([]byte(presented), []byte(apiKey)) != 1 {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid api key")
		}

		return c.Next()
	}
}
