package middleware

import (
	"log"

	"github.com/gofiber/fiber/v2"
	config "github.com/quillpub/quillpub/configs"
	"github.com/quillpub/quillpub/pkg/utils"
)

type AuthMiddleware struct {
	cfg config.Config
}

func NewAuthMiddleware(cfg config.Config) *AuthMiddleware {
	return &AuthMiddleware{cfg: cfg}
}

// RequireAccount rejects requests without a valid session cookie.
func (m *AuthMiddleware) RequireAccount() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := c.Cookies(m.cfg.CookieName)
		if tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing session cookie",
			})
		}

		claims, err := utils.ValidateToken(m.cfg.SecretKey, tokenString)
		if err != nil {
			c.Cookie(&fiber.Cookie{
				Name:   m.cfg.CookieName,
				Value:  "",
				Path:   "/",
				MaxAge: -1, // Delete cookie
			})

			log.Printf("Token validation failed: %v", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		c.Locals("account_id", claims.AccountID)
		return c.Next()
	}
}

// OptionalAccount resolves the session if one is present but lets
// anonymous requests through; the timeline serves both.
func (m *AuthMiddleware) OptionalAccount() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := c.Cookies(m.cfg.CookieName)
		if tokenString != "" {
			if claims, err := utils.ValidateToken(m.cfg.SecretKey, tokenString); err == nil {
				c.Locals("account_id", claims.AccountID)
			}
		}
		return c.Next()
	}
}
