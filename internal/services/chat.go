package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"edubot-backend/internal/models"
)

type conversationStore interface {
	Create(ctx context.Context, c *models.Conversation) error
	GetOwned(ctx context.Context, id, userID uuid.UUID) (*models.Conversation, error)
	Touch(ctx context.Context, id uuid.UUID) error
}

type messageStore interface {
	Create(ctx context.Context, m *models.Message) error
}

type responder interface {
	GenerateResponse(ctx context.Context, message string, chatCtx ChatContext) string
}

// ChatService turns one student message into a stored user turn plus a
// stored AI turn on the resolved conversation.
type ChatService struct {
	conversations conversationStore
	messages      messageStore
	ai            responder
}

func NewChatService(conversations conversationStore, messages messageStore, ai responder) *ChatService {
	return &ChatService{
		conversations: conversations,
		messages:      messages,
		ai:            ai,
	}
}

func (s *ChatService) SendMessage(ctx context.Context, userID uuid.UUID, req models.ChatRequest) (*models.ChatResponse, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, &ValidationError{Fields: map[string]string{
			"message": "Le message est requis",
		}}
	}

	// Reuse the caller's conversation or open a new one. The lookup is
	// ownership-filtered, so a foreign conversation reads as missing.
	var conversation *models.Conversation
	var err error
	if req.ConversationID != nil {
		conversation, err = s.conversations.GetOwned(ctx, *req.ConversationID, userID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, &NotFoundError{Message: "Conversation introuvable"}
			}
			return nil, err
		}
	} else {
		conversation = &models.Conversation{UserID: userID}
		if err := s.conversations.Create(ctx, conversation); err != nil {
			return nil, err
		}
	}

	classLevel := optional(req.ClassLevel)
	subject := optional(req.Subject)

	userMessage := &models.Message{
		ConversationID: conversation.ID,
		Content:        req.Message,
		IsUser:         true,
		ClassLevel:     classLevel,
		Subject:        subject,
	}
	if err := s.messages.Create(ctx, userMessage); err != nil {
		return nil, err
	}

	// The adapter absorbs its own failures, so this always yields a reply.
	reply := s.ai.GenerateResponse(ctx, req.Message, ChatContext{
		ClassLevel: req.ClassLevel,
		Subject:    req.Subject,
	})

	aiMessage := &models.Message{
		ConversationID: conversation.ID,
		Content:        reply,
		IsUser:         false,
		ClassLevel:     classLevel,
		Subject:        subject,
	}
	if err := s.messages.Create(ctx, aiMessage); err != nil {
		return nil, err
	}

	if err := s.conversations.Touch(ctx, conversation.ID); err != nil {
		return nil, err
	}

	return &models.ChatResponse{
		Response:       reply,
		ConversationID: conversation.ID,
		MessageID:      aiMessage.ID,
	}, nil
}
