package connections

import (
	"errors"

	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ConnectionHandler struct {
	service *ConnectionService
}

func NewConnectionHandler(service *ConnectionService) *ConnectionHandler {
	return &ConnectionHandler{service: service}
}

func (h *ConnectionHandler) SendRequest(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req SendRequestRequest
	if err := c.BodyParser(&req); err != nil || req.FriendID == uuid.Nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "friend_id is required",
		})
	}

	conn, err := h.service.SendRequest(c.UserContext(), userID, req.FriendID)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(conn)
}

func (h *ConnectionHandler) Accept(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid connection ID",
		})
	}

	conn, err := h.service.Accept(c.UserContext(), userID, id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(conn)
}

func (h *ConnectionHandler) ListFriends(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	friends, err := h.service.ListFriends(c.UserContext(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"data": friends})
}

func (h *ConnectionHandler) ListPending(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	pending, err := h.service.ListPending(c.UserContext(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"data": pending})
}

func (h *ConnectionHandler) Remove(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	otherID, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid user ID",
		})
	}

	if err := h.service.Remove(c.UserContext(), userID, otherID); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Connection removed"})
}

func (h *ConnectionHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(stats)
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Error: true, Message: "Unauthorized",
	})
}

func writeError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	message := "Internal server error"
	switch {
	case errors.Is(err, services.ErrSelfTarget):
		status, message = fiber.StatusBadRequest, err.Error()
	case errors.Is(err, services.ErrUserNotFound), errors.Is(err, ErrConnectionNotFound):
		status, message = fiber.StatusNotFound, err.Error()
	case errors.Is(err, services.ErrBlocked), errors.Is(err, ErrNotAddressee):
		status, message = fiber.StatusForbidden, err.Error()
	case errors.Is(err, ErrConnectionExists), errors.Is(err, ErrNotPending):
		status, message = fiber.StatusConflict, err.Error()
	}
	return c.Status(status).JSON(dto.ErrorResponse{Error: true, Message: message})
}
