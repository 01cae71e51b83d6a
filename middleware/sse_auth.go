package middleware

import (
	"log"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// SSEAuthMiddleware authenticates EventSource connections. Browsers cannot set
// headers on an EventSource, so the Gateway re-signs the stream URL with the
// service token and user id as query params.
//
// Usage:
//
//	app.Get("/user/ailock/stream", middleware.SSEAuthMiddleware(), progressionService.StreamXpEventsSSE)
func SSEAuthMiddleware() fiber.Handler {
	expectedToken := os.Getenv("AILOCK_SERVICE_TOKEN")
	if expectedToken == "" {
		log.Fatal("❌ AILOCK_SERVICE_TOKEN is not set — SSE routes cannot authenticate")
	}

	return func(c *fiber.Ctx) error {
		token := strings.TrimSpace(c.Query("token"))
		userID := strings.TrimSpace(c.Query("user_id"))

		if token == "" || userID == "" {
			log.Printf("[SSEAuth] ❌ Missing query params on %s (token len=%d, user_id=%q)",
				c.Path(), len(token), userID)
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "missing token or user_id in query",
			})
		}

		if token != expectedToken {
			log.Printf("[SSEAuth] ❌ Invalid token on %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid stream token",
			})
		}

		c.Locals("user_id", userID)
		return c.Next()
	}
}
