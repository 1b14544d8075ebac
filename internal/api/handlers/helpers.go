package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/maheshrc27/tupae-api/internal/service"
	"go.uber.org/zap"
)

const msgServerError = "Server error"

// GetUserID returns the id the auth middleware stored for the request, or 0.
func GetUserID(c *fiber.Ctx) int64 {
	raw, _ := c.Locals("user_id").(string)
	userID, _ := strconv.ParseInt(raw, 10, 64)
	return userID
}

// respondError writes the HTTP form of a service error. Anything outside the
// service taxonomy is logged and answered with a generic 500.
func respondError(c *fiber.Ctx, err error) error {
	var (
		validation   *service.ValidationError
		conflict     *service.ConflictError
		collaborator *service.CollaboratorError
	)

	switch {
	case errors.As(err, &validation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  validation.First(),
			"errors": validation.Errors,
		})
	case errors.Is(err, service.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": service.ErrForbidden.Error()})
	case errors.As(err, &conflict):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": conflict.Message})
	case errors.As(err, &collaborator):
		zap.S().Errorw("collaborator failure", "path", c.Path(), "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": collaborator.Collaborator + " unavailable",
		})
	}

	zap.S().Errorw("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": msgServerError})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

// parseBody decodes a JSON body into dst. An empty body leaves dst untouched.
func parseBody(c *fiber.Ctx, dst any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	return c.BodyParser(dst)
}
