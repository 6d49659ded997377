package handlers

import (
	"errors"

	"github.com/ahmetcoskunkizilkaya/roadmate-backend/internal/sweeper"
	"github.com/gofiber/fiber/v2"
)

type AdminHandler struct {
	sweeper *sweeper.Sweeper
}

func NewAdminHandler(s *sweeper.Sweeper) *AdminHandler {
	return &AdminHandler{sweeper: s}
}

func (h *AdminHandler) ListSweeps(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.sweeper.Jobs()})
}

// RunSweep executes the named sweeper job now and reports how many rows
// it touched.
func (h *AdminHandler) RunSweep(c *fiber.Ctx) error {
	job := c.Params("job")
	affected, err := h.sweeper.RunNow(c.UserContext(), job)
	if err != nil {
		if errors.Is(err, sweeper.ErrUnknownJob) {
			return respond(c, fiber.StatusNotFound, err.Error())
		}
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"job": job, "affected": affected})
}
