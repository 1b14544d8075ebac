package handlers

import (
	"github.com/gofiber/fiber/v2"
	config "github.com/maheshrc27/tupae-api/configs"
	"github.com/maheshrc27/tupae-api/internal/service"
)

type UserHandler struct {
	s   service.UserService
	cfg config.Config
}

func NewUserHandler(cfg config.Config, service service.UserService) *UserHandler {
	return &UserHandler{s: service, cfg: cfg}
}

func (h *UserHandler) GetUserInfo(c *fiber.Ctx) error {
	userInfo, err := h.s.GetUserInfo(c.UserContext(), GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(userInfo)
}

// RemoveAccount deletes the caller with all their posts and ends the session.
func (h *UserHandler) RemoveAccount(c *fiber.Ctx) error {
	if err := h.s.RemoveUser(c.UserContext(), GetUserID(c)); err != nil {
		return respondError(c, err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cfg.CookieName,
		Value:    "",
		HTTPOnly: true,
		Path:     "/",
		MaxAge:   -1,
	})
	return c.JSON(fiber.Map{"message": "Account deleted successfully"})
}

func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
