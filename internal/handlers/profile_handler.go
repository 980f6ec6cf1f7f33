package handlers

import (
	"context"
	"errors"
	"log"
	"path"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/armin-rsh/FitLinkApp/internal/models"
	"github.com/armin-rsh/FitLinkApp/internal/services"
)

type avatarStore interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	UpdateAvatar(ctx context.Context, userID int64, avatarURL string) error
}

// ProfileHandler covers the account-profile mutations, currently just the
// avatar swap.
type ProfileHandler struct {
	users   avatarStore
	storage services.StorageService
}

func NewProfileHandler(users avatarStore, storage services.StorageService) *ProfileHandler {
	return &ProfileHandler{users: users, storage: storage}
}

// UpdateAvatar replaces the caller's profile picture. The previous upload is
// removed best-effort; placeholder avatars live outside storage and are
// skipped by the delete.
func (h *ProfileHandler) UpdateAvatar(c *fiber.Ctx) error {
	userID, err := actorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	user, err := h.users.GetByID(c.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load user"})
	}

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing avatar file"})
	}
	if fileHeader.Size > maxUploadBytes {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": "File too large"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unreadable file"})
	}
	defer file.Close()

	folder := path.Join("avatars", strconv.FormatInt(userID, 10))
	stored, err := h.storage.UploadFile(c.Context(), file, fileHeader.Filename, folder)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to store avatar"})
	}

	if err := h.users.UpdateAvatar(c.Context(), userID, stored); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update avatar"})
	}

	if user.AvatarURL != "" {
		if err := h.storage.DeleteFile(c.Context(), user.AvatarURL); err != nil {
			log.Printf("remove previous avatar: %v", err)
		}
	}

	user.AvatarURL = stored
	return c.JSON(user.Public())
}
