package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/armin-rsh/FitLinkApp/internal/services"
)

type PresenceHandler struct {
	presence *services.PresenceService
}

func NewPresenceHandler(presence *services.PresenceService) *PresenceHandler {
	return &PresenceHandler{presence: presence}
}

// GetPresence reports whether a user currently holds a live connection.
// Answers false when presence tracking is disabled.
func (h *PresenceHandler) GetPresence(c *fiber.Ctx) error {
	userID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || userID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user id"})
	}

	online, err := h.presence.IsOnline(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to check presence"})
	}

	return c.JSON(fiber.Map{"online": online})
}
