// Package middleware provides HTTP middleware for the switch API.
package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"

	"pinkpay/internal/utils/response"
)

// AdminKeyHeader carries the operator key on admin routes.
const AdminKeyHeader = "X-Admin-Key"

// RequireAdminKey rejects requests whose X-Admin-Key header does not match
// key. An empty key leaves the routes open, which suits the demo profile.
func RequireAdminKey(key string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if key == "" {
			return c.Next()
		}
		got := c.Get(AdminKeyHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			return response.Error(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized")
		}
		return c.Next()
	}
}
