package middleware

import (
	"strings"

	"freshdock/models"

	"github.com/gofiber/fiber/v2"
)

const sessionKey = "session"

// TokenParser turns a bearer token into a session.
type TokenParser interface {
	ParseToken(raw string) (models.Session, error)
}

// Authenticate verifies the bearer token once and stores the resulting
// Session in ctx.Locals for the rest of the request.
func Authenticate(parser TokenParser) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		authHeader := ctx.Get("Authorization")
		if authHeader == "" {
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Missing Authorization header",
			})
		}

		tokenParts := strings.Fields(authHeader)
		if len(tokenParts) != 2 || strings.ToLower(tokenParts[0]) != "bearer" {
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Invalid Authorization header format",
			})
		}

		sess, err := parser.ParseToken(tokenParts[1])
		if err != nil {
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Unauthorized: Invalid token",
			})
		}

		ctx.Locals(sessionKey, sess)
		return ctx.Next()
	}
}

func SessionFrom(ctx *fiber.Ctx) (models.Session, bool) {
	sess, ok := ctx.Locals(sessionKey).(models.Session)
	return sess, ok
}
