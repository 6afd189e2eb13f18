package middleware

import (
	"log"
	"strings"

	"baghchal-server/services"

	"github.com/gofiber/fiber/v2"
)

// RequireUser validates the Bearer token and attaches the authenticated
// user id to the request context as "user_id".
func RequireUser(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if header == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing Authorization header",
			})
		}

		token := strings.TrimPrefix(header, "Bearer ")
		if token == header {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "malformed Authorization header",
			})
		}

		userID, err := auth.VerifyToken(token)
		if err != nil {
			log.Printf("[AUTH] rejected token on %s: %v", c.Path(), err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid authentication credentials",
			})
		}

		c.Locals("user_id", userID)
		return c.Next()
	}
}
