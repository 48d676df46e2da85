package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/itsuki2003/todaibansou-admin/internal/apperr"
)

// respondError maps the engine's error taxonomy onto HTTP statuses. Every
// error reaches the caller with enough detail to render a user message.
func respondError(c *fiber.Ctx, err error) error {
	switch {
	case apperr.IsValidation(err):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(errBody("validation", err))
	case apperr.IsNotFound(err):
		return c.Status(fiber.StatusNotFound).JSON(errBody("not_found", err))
	case apperr.IsInvalidState(err):
		return c.Status(fiber.StatusConflict).JSON(errBody("invalid_state", err))
	case apperr.IsConflict(err):
		return c.Status(fiber.StatusConflict).JSON(errBody("conflict", err))
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(errBody("persistence", err))
	}
}

func errBody(kind string, err error) fiber.Map {
	return fiber.Map{
		"kind":  kind,
		"error": err.Error(),
	}
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"kind":  "bad_request",
		"error": msg,
	})
}
