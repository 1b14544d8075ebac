package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/tupae-api/configs"
	"github.com/maheshrc27/tupae-api/internal/service"
	"github.com/maheshrc27/tupae-api/pkg/utils"
	"go.uber.org/zap"
)

const (
	stateCookieName = "tupae_oauth_state"
	stateTTL        = 10 * time.Minute
)

type AuthHandler struct {
	s   service.AuthService
	cfg config.Config
}

func NewAuthHandler(cfg config.Config, service service.AuthService) *AuthHandler {
	return &AuthHandler{s: service, cfg: cfg}
}

// Login redirects to Google. The state is echoed back in a short-lived
// cookie and checked on the callback.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	state, err := utils.GenerateRandomKey(16)
	if err != nil {
		return respondError(c, err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     stateCookieName,
		Value:    state,
		HTTPOnly: true,
		Secure:   h.cfg.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
		Expires:  time.Now().Add(stateTTL),
	})
	return c.Redirect(h.s.AuthCodeURL(state), fiber.StatusTemporaryRedirect)
}

func (h *AuthHandler) LoginCallbackHandler(c *fiber.Ctx) error {
	state := c.Cookies(stateCookieName)
	if state == "" || state != c.Query("state") {
		zap.S().Infow("oauth state mismatch")
		return badRequest(c, "Invalid login state")
	}
	c.ClearCookie(stateCookieName)

	userID, err := h.s.LoginCallback(c.UserContext(), c.Query("code"))
	if err != nil {
		return respondError(c, err)
	}

	token, err := h.s.IssueToken(userID)
	if err != nil {
		return respondError(c, err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cfg.CookieName,
		Value:    token,
		HTTPOnly: true,
		Secure:   h.cfg.IsProduction(),
		SameSite: fiber.CookieSameSiteLaxMode,
		Path:     "/",
		Expires:  time.Now().Add(h.cfg.TokenTTL),
	})
	return c.Redirect(h.cfg.FrontendURL, fiber.StatusTemporaryRedirect)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     h.cfg.CookieName,
		Value:    "",
		HTTPOnly: true,
		Path:     "/",
		MaxAge:   -1,
	})
	return c.JSON(fiber.Map{"message": "Logged out"})
}
