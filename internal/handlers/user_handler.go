package handlers

import (
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type UserHandler struct {
	users  *services.UserService
	routes *services.RouteService
}

func NewUserHandler(users *services.UserService, routes *services.RouteService) *UserHandler {
	return &UserHandler{users: users, routes: routes}
}

func (h *UserHandler) Me(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	user, err := h.users.Get(c.UserContext(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(user)
}

// UpdateRoute saves the route and returns before the fan-out runs.
func (h *UserHandler) UpdateRoute(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.RouteRequest
	if err := c.BodyParser(&req); err != nil {
		return respond(c, fiber.StatusBadRequest, "Invalid request body")
	}

	if err := h.routes.UpdateRoute(c.UserContext(), userID, req.Route); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Route updated"})
}

func (h *UserHandler) UpdatePushToken(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.PushTokenRequest
	if err := c.BodyParser(&req); err != nil {
		return respond(c, fiber.StatusBadRequest, "Invalid request body")
	}

	if err := h.users.UpdatePushToken(c.UserContext(), userID, req.Token); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Push token updated"})
}
