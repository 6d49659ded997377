package handlers

import (
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type NotificationHandler struct {
	notifications *services.NotificationService
	broadcaster   *services.Broadcaster
}

func NewNotificationHandler(notifications *services.NotificationService, broadcaster *services.Broadcaster) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, broadcaster: broadcaster}
}

// List returns the caller's feed, newest first. ?unread=true limits it to
// unread entries.
func (h *NotificationHandler) List(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	list, err := h.notifications.List(c.UserContext(), userID, c.QueryBool("unread", false))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"data": list})
}

func (h *NotificationHandler) UnreadCount(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	count, err := h.notifications.UnreadCount(c.UserContext(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.UnreadCountResponse{Count: count})
}

func (h *NotificationHandler) MarkRead(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return respond(c, fiber.StatusBadRequest, "Invalid notification ID")
	}

	if err := h.notifications.MarkRead(c.UserContext(), userID, id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Notification marked as read"})
}

func (h *NotificationHandler) MarkAllRead(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	if err := h.notifications.MarkAllRead(c.UserContext(), userID); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"message": "All notifications marked as read"})
}

func (h *NotificationHandler) MeetingRequest(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.MeetingRequest
	if err := c.BodyParser(&req); err != nil || req.TargetUserID == uuid.Nil {
		return respond(c, fiber.StatusBadRequest, "target_user_id is required")
	}

	n, err := h.broadcaster.SendMeetingRequest(c.UserContext(), userID, req.TargetUserID)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(n)
}
