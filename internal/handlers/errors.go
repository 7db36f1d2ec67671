package handlers

import (
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/safety-core/internal/dto"
	"github.com/ahmetcoskunkizilkaya/safety-core/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// writeError maps service error kinds to HTTP statuses. Anything unclassified
// is logged and surfaced as a 500 with the fallback message.
func writeError(c *fiber.Ctx, err error, fallback string) error {
	var restricted *services.RestrictionError
	if errors.As(err, &restricted) {
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error: true, Message: restricted.Error(), Restriction: restricted.Status,
		})
	}

	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrValidation):
		status = fiber.StatusBadRequest
	case errors.Is(err, services.ErrConflict):
		status = fiber.StatusConflict
	case errors.Is(err, services.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, services.ErrAuthentication):
		status = fiber.StatusUnauthorized
	case errors.Is(err, services.ErrAuthorization):
		status = fiber.StatusForbidden
	}

	if status == fiber.StatusInternalServerError {
		slog.Error(fallback,
			"error", err,
			"path", c.Path(),
			"request_id", c.Locals("requestid"),
		)
		return c.Status(status).JSON(dto.ErrorResponse{Error: true, Message: fallback})
	}
	return c.Status(status).JSON(dto.ErrorResponse{Error: true, Message: err.Error()})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: true, Message: msg})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Error: true, Message: "Unauthorized"})
}

func forbidden(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Error: true, Message: msg})
}

func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Params(name))
	return id, err == nil
}
