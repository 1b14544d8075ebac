package middleware

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/tupae-api/configs"
	"github.com/maheshrc27/tupae-api/internal/service"
	"go.uber.org/zap"
)

type AuthMiddleware struct {
	auth service.AuthService
	keys service.ApiKeyService
	cfg  config.Config
}

func NewAuthMiddleware(cfg config.Config, auth service.AuthService, keys service.ApiKeyService) *AuthMiddleware {
	return &AuthMiddleware{auth: auth, keys: keys, cfg: cfg}
}

// AuthMiddleware resolves the caller from the api_key query parameter, the
// session cookie or a bearer token, in that order, and stores the user id
// in the "user_id" local.
func (m *AuthMiddleware) AuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if apiKey := c.Query("api_key"); apiKey != "" {
			userID, err := m.keys.GetUserID(c.UserContext(), apiKey)
			if err != nil {
				if errors.Is(err, service.ErrInvalidApiKey) {
					return unauthorized(c, err.Error())
				}
				zap.S().Errorw("api key lookup failed", "error", err)
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Server error"})
			}
			c.Locals("user_id", strconv.FormatInt(userID, 10))
			return c.Next()
		}

		fromCookie := true
		tokenString := c.Cookies(m.cfg.CookieName)
		if tokenString == "" {
			fromCookie = false
			tokenString = bearerToken(c.Get(fiber.HeaderAuthorization))
		}
		if tokenString == "" {
			return unauthorized(c, "Missing credentials")
		}

		userID, err := m.auth.ParseToken(tokenString)
		if err != nil {
			if fromCookie {
				c.Cookie(&fiber.Cookie{
					Name:   m.cfg.CookieName,
					Value:  "",
					Path:   "/",
					MaxAge: -1,
				})
			}
			return unauthorized(c, err.Error())
		}

		c.Locals("user_id", strconv.FormatInt(userID, 10))
		return c.Next()
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func unauthorized(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": msg})
}
