package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

// AdminAuth guards the admin surface with a bearer token checked against
// a bcrypt hash. An empty hash disables the surface entirely.
func AdminAuth(tokenHash string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if tokenHash == "" {
			return fiber.NewError(http.StatusNotFound, "admin interface disabled")
		}
		header := c.Get(fiber.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(tokenHash), []byte(token)); err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid admin token")
		}
		return c.Next()
	}
}
