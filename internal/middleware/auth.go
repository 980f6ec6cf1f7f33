package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/armin-rsh/FitLinkApp/pkg/utils"
)

// AuthRequired validates the bearer token and stores the caller's identity
// in the request locals under user_id and role, where the handlers'
// actor lookup expects it.
func AuthRequired(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		scheme, token, found := strings.Cut(c.Get(fiber.HeaderAuthorization), " ")
		if !found || scheme != "Bearer" || strings.TrimSpace(token) == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing or malformed bearer token",
			})
		}

		claims, err := utils.ValidateToken(strings.TrimSpace(token), secret)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("role", claims.Role)
		return c.Next()
	}
}
