package activities

import (
	"context"
	"errors"

	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ActivityHandler struct {
	service *ActivityService
}

func NewActivityHandler(service *ActivityService) *ActivityHandler {
	return &ActivityHandler{service: service}
}

func (h *ActivityHandler) Create(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	var req CreateActivityRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	activity, err := h.service.Create(c.UserContext(), userID, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(activity)
}

func (h *ActivityHandler) List(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	list, err := h.service.ListForUser(c.UserContext(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"data": list})
}

func (h *ActivityHandler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid activity ID",
		})
	}

	activity, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(activity)
}

func (h *ActivityHandler) Join(c *fiber.Ctx) error {
	return h.act(c, h.service.Join, "Joined activity")
}

func (h *ActivityHandler) Leave(c *fiber.Ctx) error {
	return h.act(c, h.service.Leave, "Left activity")
}

func (h *ActivityHandler) Cancel(c *fiber.Ctx) error {
	return h.act(c, h.service.Cancel, "Activity cancelled")
}

func (h *ActivityHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(stats)
}

func (h *ActivityHandler) act(c *fiber.Ctx, fn func(ctx context.Context, userID, activityID uuid.UUID) error, message string) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid activity ID",
		})
	}

	if err := fn(c.UserContext(), userID, id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"message": message})
}

func writeError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "Internal server error"
	switch {
	case errors.Is(err, ErrTitleRequired),
		errors.Is(err, ErrInvalidActivityDate),
		errors.Is(err, ErrInvalidActivityTime),
		errors.Is(err, services.ErrInvalidCoordinates):
		status, message = fiber.StatusBadRequest, err.Error()
	case errors.Is(err, ErrActivityNotFound):
		status, message = fiber.StatusNotFound, err.Error()
	case errors.Is(err, ErrNotCreator), errors.Is(err, services.ErrBlocked):
		status, message = fiber.StatusForbidden, err.Error()
	case errors.Is(err, ErrAlreadyJoined),
		errors.Is(err, ErrActivityCancelled),
		errors.Is(err, ErrNotParticipant),
		errors.Is(err, ErrCreatorCannotLeave):
		status, message = fiber.StatusConflict, err.Error()
	}
	return c.Status(status).JSON(dto.ErrorResponse{Error: true, Message: message})
}
