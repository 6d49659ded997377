package handlers

import (
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type DistressHandler struct {
	distress *services.DistressService
}

func NewDistressHandler(distress *services.DistressService) *DistressHandler {
	return &DistressHandler{distress: distress}
}

// Activate raises the caller's SOS. Free-tier callers get 403 with
// requires_pro set.
func (h *DistressHandler) Activate(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	notified, err := h.distress.Activate(c.UserContext(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.DistressActivateResponse{
		Message:       "Distress signal activated",
		NotifiedCount: notified,
	})
}

func (h *DistressHandler) Deactivate(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	if err := h.distress.Deactivate(c.UserContext(), userID); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Distress signal deactivated"})
}
