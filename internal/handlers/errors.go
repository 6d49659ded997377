package handlers

import (
	"errors"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

// writeError maps service sentinels to HTTP statuses. Anything unknown is
// logged and returned as a bare 500.
func writeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrUpgradeRequired):
		return c.Status(fiber.StatusForbidden).JSON(dto.UpgradeRequiredResponse{
			Error: true, Message: err.Error(), RequiresPro: true,
		})
	case errors.Is(err, services.ErrLocationRequired),
		errors.Is(err, services.ErrInvalidCoordinates),
		errors.Is(err, services.ErrSelfTarget):
		return respond(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrBlockNotFound):
		return respond(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrBlocked):
		return respond(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, services.ErrSelfBlock),
		errors.Is(err, services.ErrAlreadyBlocked):
		return respond(c, fiber.StatusConflict, err.Error())
	}

	slog.Error("request failed",
		"component", "http",
		"path", c.Path(),
		"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
		"error", err,
	)
	return respond(c, fiber.StatusInternalServerError, "Internal server error")
}

func respond(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(dto.ErrorResponse{Error: true, Message: message})
}

func unauthorized(c *fiber.Ctx) error {
	return respond(c, fiber.StatusUnauthorized, "Unauthorized")
}
