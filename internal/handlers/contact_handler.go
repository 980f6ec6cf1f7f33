package handlers

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/armin-rsh/FitLinkApp/internal/repository"
	"github.com/armin-rsh/FitLinkApp/pkg/model"
)

// ContactHandler serves the lookups the messaging clients use to build
// their permitted-recipient set: assigned coach, the admin account and a
// coach's client list.
type ContactHandler struct {
	userRepo *repository.UserRepository
}

func NewContactHandler(userRepo *repository.UserRepository) *ContactHandler {
	return &ContactHandler{userRepo: userRepo}
}

// GetCoach returns the coach assigned to a plain user, or null when none
// is. Callers may only ask about themselves unless they are the admin.
func (h *ContactHandler) GetCoach(c *fiber.Ctx) error {
	userID, err := actorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	targetID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || targetID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user id"})
	}

	role, _ := c.Locals("role").(string)
	if targetID != userID && role != string(model.RoleAdmin) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	coach, err := h.userRepo.GetCoachOf(c.Context(), targetID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.JSON(fiber.Map{"coach": nil})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load coach"})
	}

	return c.JSON(fiber.Map{"coach": coach.Public()})
}

// GetAdmin returns the single admin account every user may message.
func (h *ContactHandler) GetAdmin(c *fiber.Ctx) error {
	admin, err := h.userRepo.GetAdmin(c.Context())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Admin not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load admin"})
	}

	return c.JSON(admin.Public())
}

// GetClients returns the plain users assigned to a coach. Only that coach
// or the admin may ask.
func (h *ContactHandler) GetClients(c *fiber.Ctx) error {
	userID, err := actorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	coachID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || coachID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid coach id"})
	}

	role, _ := c.Locals("role").(string)
	if coachID != userID && role != string(model.RoleAdmin) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	}

	clients, err := h.userRepo.ListClients(c.Context(), coachID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load clients"})
	}

	return c.JSON(fiber.Map{"clients": repository.PublicUsers(clients)})
}
