package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"edubot-backend/internal/middleware"
	"edubot-backend/internal/models"
)

type chatSender interface {
	SendMessage(ctx context.Context, userID uuid.UUID, req models.ChatRequest) (*models.ChatResponse, error)
}

type conversationRepository interface {
	GetOwned(ctx context.Context, id, userID uuid.UUID) (*models.Conversation, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Conversation, error)
	DeleteOwned(ctx context.Context, id, userID uuid.UUID) error
}

type messageRepository interface {
	ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]*models.Message, error)
}

type ChatHandler struct {
	chatService   chatSender
	conversations conversationRepository
	messages      messageRepository
}

func NewChatHandler(chatService chatSender, conversations conversationRepository, messages messageRepository) *ChatHandler {
	return &ChatHandler{
		chatService:   chatService,
		conversations: conversations,
		messages:      messages,
	}
}

func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Corps de requête invalide", r))
		return
	}

	resp, err := h.chatService.SendMessage(r.Context(), userID, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *ChatHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	conversations, err := h.conversations.ListByUser(r.Context(), userID)
	if err != nil {
		log.Printf("failed to list conversations for %s: %v", userID, err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Une erreur inattendue s'est produite", r))
		return
	}

	for _, c := range conversations {
		messages, err := h.messages.ListByConversation(r.Context(), c.ID)
		if err != nil {
			log.Printf("failed to load messages for conversation %s: %v", c.ID, err)
			writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Une erreur inattendue s'est produite", r))
			return
		}
		c.Messages = messages
	}

	writeJSON(w, http.StatusOK, conversations)
}

func (h *ChatHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	// A malformed id gets the same 404 as a missing conversation.
	conversationID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Conversation introuvable", r))
		return
	}

	conversation, err := h.conversations.GetOwned(r.Context(), conversationID, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Conversation introuvable", r))
			return
		}
		log.Printf("failed to load conversation %s: %v", conversationID, err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Une erreur inattendue s'est produite", r))
		return
	}

	messages, err := h.messages.ListByConversation(r.Context(), conversation.ID)
	if err != nil {
		log.Printf("failed to load messages for conversation %s: %v", conversation.ID, err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Une erreur inattendue s'est produite", r))
		return
	}
	conversation.Messages = messages

	writeJSON(w, http.StatusOK, conversation)
}

func (h *ChatHandler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	conversationID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Conversation introuvable", r))
		return
	}

	if err := h.conversations.DeleteOwned(r.Context(), conversationID, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Conversation introuvable", r))
			return
		}
		log.Printf("failed to delete conversation %s: %v", conversationID, err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Une erreur inattendue s'est produite", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Conversation supprimée avec succès"})
}
