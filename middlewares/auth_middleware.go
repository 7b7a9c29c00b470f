package middlewares

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"

	"github.com/agrikart/api/models"
	"github.com/agrikart/api/responses"
)

// Auth validates Bearer tokens and exposes the caller's identity and role
// through fiber locals.
type Auth struct {
	secret []byte
}

func NewAuth(secret string) *Auth {
	return &Auth{secret: []byte(secret)}
}

// Require rejects requests without a valid Bearer token. On success the
// "userId" and "role" locals are set for downstream handlers.
func (a *Auth) Require(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return responses.Fail(c, fiber.StatusUnauthorized, "No auth token, access denied")
	}

	bearerToken := strings.Split(authHeader, " ")
	if len(bearerToken) != 2 || bearerToken[0] != "Bearer" {
		return responses.Fail(c, fiber.StatusUnauthorized, "Invalid authorization header format")
	}

	claims := &jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(bearerToken[1], claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return responses.Fail(c, fiber.StatusUnauthorized, "Token verification failed, access denied")
	}

	userId, ok := (*claims)["id"].(string)
	if !ok || userId == "" {
		return responses.Fail(c, fiber.StatusUnauthorized, "User ID not found in token")
	}
	role, _ := (*claims)["role"].(string)

	c.Locals("userId", userId)
	c.Locals("role", role)
	return c.Next()
}

// RequireAdmin rejects callers without the admin role. Must run after Require.
func (a *Auth) RequireAdmin(c *fiber.Ctx) error {
	role, _ := c.Locals("role").(string)
	if role != models.RoleAdmin {
		return responses.Fail(c, fiber.StatusForbidden, "Admin access required")
	}
	return c.Next()
}

// IsAdmin reports whether the authenticated caller is an administrator.
func IsAdmin(c *fiber.Ctx) bool {
	role, _ := c.Locals("role").(string)
	return role == models.RoleAdmin
}
