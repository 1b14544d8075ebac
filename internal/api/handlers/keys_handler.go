package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/tupae-api/internal/service"
	"github.com/maheshrc27/tupae-api/internal/transfer"
)

type ApiKeyHandler struct {
	s service.ApiKeyService
}

func NewApiKeyHandler(service service.ApiKeyService) *ApiKeyHandler {
	return &ApiKeyHandler{s: service}
}

func (h *ApiKeyHandler) CreateApiKey(c *fiber.Ctx) error {
	var req transfer.ApiKeyCreation
	if err := parseBody(c, &req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	key, err := h.s.Create(c.UserContext(), GetUserID(c), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(key)
}

func (h *ApiKeyHandler) ListKeys(c *fiber.Ctx) error {
	keys, err := h.s.List(c.UserContext(), GetUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(keys)
}

func (h *ApiKeyHandler) RemoveApiKey(c *fiber.Ctx) error {
	keyID, err := c.ParamsInt("id")
	if err != nil {
		return badRequest(c, "Key id is not valid")
	}

	if err := h.s.Remove(c.UserContext(), GetUserID(c), int64(keyID)); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "API key removed"})
}
