package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/armin-rsh/FitLinkApp/internal/services"
)

const maxUploadBytes = 10 << 20

type UploadHandler struct {
	storage services.StorageService
}

func NewUploadHandler(storage services.StorageService) *UploadHandler {
	return &UploadHandler{storage: storage}
}

// Upload accepts one multipart file plus the uploader's id and answers with
// the filepath the attachment is served from.
func (h *UploadHandler) Upload(c *fiber.Ctx) error {
	userID, err := actorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	uploaderID, err := strconv.ParseInt(c.FormValue("uploader_id"), 10, 64)
	if err != nil || uploaderID != userID {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Uploader mismatch"})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing file"})
	}
	if fileHeader.Size > maxUploadBytes {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": "File too large"})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unreadable file"})
	}
	defer file.Close()

	stored, err := h.storage.UploadFile(c.Context(), file, fileHeader.Filename, strconv.FormatInt(uploaderID, 10))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to store file"})
	}

	return c.JSON(fiber.Map{"filepath": stored})
}
