package services

import (
	"context"
	"errors"
	"strings"

	"github.com/armin-rsh/FitLinkApp/internal/models"
	"github.com/armin-rsh/FitLinkApp/pkg/model"
)

var (
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
)

type userReader interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

type messageStore interface {
	Create(ctx context.Context, msg model.Message) (*model.Message, error)
	ListBetween(ctx context.Context, a, b int64) ([]model.Message, error)
	GetByID(ctx context.Context, id int64) (*model.Message, error)
	UpdateText(ctx context.Context, id int64, text string) (*model.Message, error)
	Delete(ctx context.Context, id int64) error
	MarkPairRead(ctx context.Context, readerID, peerID int64) error
}

// ChatService is the authoritative side of the messaging rules: who may
// message whom, and who may edit or delete what. The client SDK performs the
// same recipient check, but only as a UX guard.
type ChatService struct {
	users    userReader
	messages messageStore
}

func NewChatService(users userReader, messages messageStore) *ChatService {
	return &ChatService{users: users, messages: messages}
}

// History returns the conversation newest-first and marks the actor's side
// of it read.
func (s *ChatService) History(ctx context.Context, actorID, selfID, peerID int64) ([]model.Message, error) {
	if actorID != selfID {
		return nil, ErrForbidden
	}
	if peerID <= 0 || peerID == selfID {
		return nil, ErrInvalidInput
	}

	messages, err := s.messages.ListBetween(ctx, selfID, peerID)
	if err != nil {
		return nil, err
	}
	if err := s.messages.MarkPairRead(ctx, selfID, peerID); err != nil {
		return nil, err
	}
	return messages, nil
}

// SendMessage persists one message after validating content and the
// role-based recipient rule.
func (s *ChatService) SendMessage(ctx context.Context, actorID int64, msg model.Message) (*model.Message, error) {
	if msg.SenderID != actorID {
		return nil, ErrForbidden
	}
	msg.Message = strings.TrimSpace(msg.Message)
	if !msg.Sendable() {
		return nil, ErrInvalidInput
	}
	if msg.ReceiverID <= 0 || msg.ReceiverID == msg.SenderID {
		return nil, ErrInvalidInput
	}

	sender, err := s.users.GetByID(ctx, msg.SenderID)
	if err != nil {
		return nil, err
	}
	receiver, err := s.users.GetByID(ctx, msg.ReceiverID)
	if err != nil {
		return nil, err
	}
	if !PairPermitted(sender, receiver) {
		return nil, ErrForbidden
	}

	return s.messages.Create(ctx, msg)
}

// EditMessage rewrites the text of a message its author sent.
func (s *ChatService) EditMessage(ctx context.Context, actorID, messageID int64, text string) (*model.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrInvalidInput
	}

	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != actorID {
		return nil, ErrForbidden
	}

	return s.messages.UpdateText(ctx, messageID, text)
}

// DeleteMessage removes a message its author sent.
func (s *ChatService) DeleteMessage(ctx context.Context, actorID, messageID int64) (*model.Message, error) {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != actorID {
		return nil, ErrForbidden
	}

	if err := s.messages.Delete(ctx, messageID); err != nil {
		return nil, err
	}
	return msg, nil
}

// PairPermitted implements the recipient rule: a plain user reaches their
// assigned coach and the admin; a coach reaches their clients and the admin;
// the admin reaches everyone.
func PairPermitted(sender, receiver *models.User) bool {
	switch sender.Role {
	case model.RoleAdmin:
		return true
	case model.RoleCoach:
		if receiver.Role == model.RoleAdmin {
			return true
		}
		return receiver.Role == model.RoleUser &&
			receiver.CoachID != nil && *receiver.CoachID == sender.ID
	case model.RoleUser:
		if receiver.Role == model.RoleAdmin {
			return true
		}
		return sender.CoachID != nil && *sender.CoachID == receiver.ID
	default:
		return false
	}
}
