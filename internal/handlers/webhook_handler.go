package handlers

import (
	"crypto/subtle"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type WebhookHandler struct {
	subscriptionService *services.SubscriptionService
	webhookAuth         string
}

func NewWebhookHandler(subscriptionService *services.SubscriptionService, webhookAuth string) *WebhookHandler {
	return &WebhookHandler{
		subscriptionService: subscriptionService,
		webhookAuth:         webhookAuth,
	}
}

// HandleRevenueCat applies a RevenueCat event to the user's tier. The
// Authorization header must equal the configured shared secret.
func (h *WebhookHandler) HandleRevenueCat(c *fiber.Ctx) error {
	if h.webhookAuth == "" {
		return respond(c, fiber.StatusNotFound, "Webhooks not configured")
	}

	authHeader := c.Get("Authorization")
	if subtle.ConstantTimeCompare([]byte(authHeader), []byte(h.webhookAuth)) != 1 {
		return unauthorized(c)
	}

	var webhook dto.RevenueCatWebhook
	if err := c.BodyParser(&webhook); err != nil {
		return respond(c, fiber.StatusBadRequest, "Invalid webhook payload")
	}

	if err := h.subscriptionService.HandleWebhookEvent(c.UserContext(), &webhook.Event); err != nil {
		slog.Error("webhook processing failed", "component", "billing", "event_type", webhook.Event.Type, "error", err)
		return respond(c, fiber.StatusInternalServerError, "Failed to process webhook event")
	}

	slog.Info("webhook processed", "component", "billing", "event_type", webhook.Event.Type)
	return c.JSON(fiber.Map{"received": true})
}

func (h *WebhookHandler) SubscriptionStatus(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	status, err := h.subscriptionService.Status(c.UserContext(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(status)
}
