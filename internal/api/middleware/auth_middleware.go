package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/liveflow/pkg/logging"
	"github.com/maheshrc27/liveflow/pkg/utils"
)

const OwnerIDKey = "owner_id"

type AuthMiddleware struct {
	secretKey  string
	cookieName string
	opsToken   string
	logger     logging.Logger
}

func NewAuthMiddleware(secretKey, cookieName, opsToken string, logger logging.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		secretKey:  secretKey,
		cookieName: cookieName,
		opsToken:   opsToken,
		logger:     logger,
	}
}

// AuthMiddleware accepts a session cookie or a bearer token and stores the owner id
// in the request locals.
func (m *AuthMiddleware) AuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := c.Cookies(m.cookieName)
		fromCookie := tokenString != ""
		if tokenString == "" {
			tokenString = bearerToken(c)
		}

		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing session",
			})
		}

		ownerID, err := utils.ValidateToken(m.secretKey, tokenString)
		if err != nil {
			if fromCookie {
				c.Cookie(&fiber.Cookie{
					Name:   m.cookieName,
					Value:  "",
					Path:   "/",
					MaxAge: -1, // Delete cookie
				})
			}

			m.logger.WithFields(logging.Fields{"error": err}).Info("token validation failed")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		c.Locals(OwnerIDKey, ownerID)
		return c.Next()
	}
}

// OpsMiddleware guards operator endpoints with a static token. With no token
// configured the endpoints are closed.
func (m *AuthMiddleware) OpsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Get("X-Ops-Token")
		if token == "" {
			token = bearerToken(c)
		}
		if m.opsToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(m.opsToken)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid operator token",
			})
		}
		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}
