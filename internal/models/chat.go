package models

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is an ordered thread of messages belonging to one user.
type Conversation struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"-"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Messages  []*Message `json:"messages"`
}

// Message is one turn in a conversation. Messages are immutable once
// written; a chat exchange always appends a user turn then an AI turn.
type Message struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"-"`
	Content        string    `json:"content"`
	IsUser         bool      `json:"is_user"`
	Timestamp      time.Time `json:"timestamp"`
	ClassLevel     *string   `json:"class_level"`
	Subject        *string   `json:"subject"`
}

// ChatRequest is the payload sent to the chat endpoint.
type ChatRequest struct {
	Message        string     `json:"message"`
	ClassLevel     string     `json:"class_level"`
	Subject        string     `json:"subject"`
	ConversationID *uuid.UUID `json:"conversation_id"`
}

// ChatResponse carries the AI reply back to the client.
type ChatResponse struct {
	Response       string    `json:"response"`
	ConversationID uuid.UUID `json:"conversation_id"`
	MessageID      uuid.UUID `json:"message_id"`
}

// API error envelope

type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
