package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"fleetdocs/internal/config"
)

// RoleLocalKey is the locals key holding the caller role.
const RoleLocalKey = "role"

// Auth derives the caller role from a bearer token's "role" claim.
// Without a configured secret every request gets the default role.
func Auth(cfg config.AuthConfig) fiber.Handler {
	secret := []byte(cfg.JWTSecret)
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	return func(c *fiber.Ctx) error {
		if len(secret) == 0 {
			c.Locals(RoleLocalKey, cfg.DefaultRole)
			return c.Next()
		}

		raw, ok := strings.CutPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}

		claims := jwt.MapClaims{}
		_, err := parser.ParseWithClaims(strings.TrimSpace(raw), claims, func(*jwt.Token) (any, error) {
			return secret, nil
		})
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		role, _ := claims["role"].(string)
		if role == "" {
			role = cfg.DefaultRole
		}
		c.Locals(RoleLocalKey, role)
		return c.Next()
	}
}

// Role returns the caller role stored by Auth.
func Role(c *fiber.Ctx) string {
	role, _ := c.Locals(RoleLocalKey).(string)
	return role
}
