package handlers

import (
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/identity"
	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type BlockHandler struct {
	blocks *services.BlockService
}

func NewBlockHandler(blocks *services.BlockService) *BlockHandler {
	return &BlockHandler{blocks: blocks}
}

func (h *BlockHandler) BlockUser(c *fiber.Ctx) error {
	blockerID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	var req dto.BlockUserRequest
	if err := c.BodyParser(&req); err != nil || req.BlockedID == uuid.Nil {
		return respond(c, fiber.StatusBadRequest, "blocked_id is required")
	}

	if err := h.blocks.Block(c.UserContext(), blockerID, req.BlockedID); err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "User blocked successfully"})
}

// UnblockUser removes the caller's block on :id, the blocked user's id.
func (h *BlockHandler) UnblockUser(c *fiber.Ctx) error {
	blockerID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}
	blockedID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return respond(c, fiber.StatusBadRequest, "Invalid user ID")
	}

	if err := h.blocks.Unblock(c.UserContext(), blockerID, blockedID); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"message": "User unblocked successfully"})
}

func (h *BlockHandler) ListBlocks(c *fiber.Ctx) error {
	blockerID, err := identity.GetUserID(c)
	if err != nil {
		return unauthorized(c)
	}

	blocks, err := h.blocks.List(c.UserContext(), blockerID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"data": blocks})
}
