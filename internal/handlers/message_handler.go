package handlers

import (
	"context"
	"errors"
	"strconv"
	"strings"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/armin-rsh/FitLinkApp/internal/services"
	chatws "github.com/armin-rsh/FitLinkApp/internal/websocket"
	"github.com/armin-rsh/FitLinkApp/pkg/model"
	"github.com/armin-rsh/FitLinkApp/pkg/utils"
)

type chatApplicationService interface {
	History(ctx context.Context, actorID, selfID, peerID int64) ([]model.Message, error)
	SendMessage(ctx context.Context, actorID int64, msg model.Message) (*model.Message, error)
	EditMessage(ctx context.Context, actorID, messageID int64, text string) (*model.Message, error)
	DeleteMessage(ctx context.Context, actorID, messageID int64) (*model.Message, error)
}

type MessageHandler struct {
	service   chatApplicationService
	hub       *chatws.Hub
	jwtSecret string
}

type updateMessageRequest struct {
	Message string `json:"message"`
}

func NewMessageHandler(service chatApplicationService, hub *chatws.Hub, jwtSecret string) *MessageHandler {
	return &MessageHandler{
		service:   service,
		hub:       hub,
		jwtSecret: jwtSecret,
	}
}

// GetHistory serves the conversation between two participants, newest
// first. The caller must be one of them.
func (h *MessageHandler) GetHistory(c *fiber.Ctx) error {
	userID, err := actorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	selfID, err := strconv.ParseInt(c.Params("selfId"), 10, 64)
	if err != nil || selfID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid participant id"})
	}
	peerID, err := strconv.ParseInt(c.Params("peerId"), 10, 64)
	if err != nil || peerID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid participant id"})
	}

	messages, err := h.service.History(c.Context(), userID, selfID, peerID)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(messages)
}

// PostMessage is the fallback send path. The canonical record is echoed in
// the response and fanned out over the live channel so a connected peer
// still sees it immediately.
func (h *MessageHandler) PostMessage(c *fiber.Ctx) error {
	userID, err := actorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var msg model.Message
	if err := c.BodyParser(&msg); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	canonical, err := h.service.SendMessage(c.Context(), userID, msg)
	if err != nil {
		return mapChatError(c, err)
	}

	h.hub.Broadcast(
		model.Event{Event: model.EventNewMessage, Message: canonical},
		canonical.SenderID, canonical.ReceiverID,
	)
	return c.Status(fiber.StatusCreated).JSON(canonical)
}

func (h *MessageHandler) UpdateMessage(c *fiber.Ctx) error {
	userID, err := actorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	messageID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || messageID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid message id"})
	}

	var req updateMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	updated, err := h.service.EditMessage(c.Context(), userID, messageID, req.Message)
	if err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(updated)
}

func (h *MessageHandler) DeleteMessage(c *fiber.Ctx) error {
	userID, err := actorID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	messageID, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || messageID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid message id"})
	}

	if _, err := h.service.DeleteMessage(c.Context(), userID, messageID); err != nil {
		return mapChatError(c, err)
	}

	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *MessageHandler) WebSocketAuth(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{"error": "WebSocket upgrade required"})
	}

	claims, err := h.parseWSClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid or expired token"})
	}

	c.Locals("user_id", claims.UserID)
	c.Locals("role", claims.Role)
	return c.Next()
}

func (h *MessageHandler) HandleWebSocket(conn *websocket.Conn) {
	raw, _ := conn.Locals("user_id").(string)
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		_ = conn.Close()
		return
	}
	client := chatws.NewClient(h.hub, conn, userID)

	h.hub.Register(client)
	go client.WritePump()
	client.ReadPump(h.service)
}

func (h *MessageHandler) parseWSClaims(c *fiber.Ctx) (*utils.Claims, error) {
	tokenString := strings.TrimSpace(c.Query("token"))
	if tokenString == "" {
		authHeader := strings.TrimSpace(c.Get("Authorization"))
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}
	}

	if tokenString == "" {
		return nil, errors.New("missing token")
	}

	return utils.ValidateToken(tokenString, h.jwtSecret)
}

func mapChatError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request"})
	case errors.Is(err, pgx.ErrNoRows):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Message not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process chat request"})
	}
}
