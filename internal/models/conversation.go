package models

import (
	"time"

	"messaging-service/internal/docstore"
)

// Document attribute names for conversation records.
const (
	ConversationParticipants    = "participants"
	ConversationLastMessage     = "last_message"
	ConversationLastMessageTime = "last_message_time"
)

// Conversation is the per-pair record keyed by the derived conversation key.
// The summary fields are a denormalized cache of the newest message, not the
// source of truth.
type Conversation struct {
	ID              string    `json:"id"`
	Participants    []string  `json:"participants"`
	LastMessage     string    `json:"last_message,omitempty"`
	LastMessageTime time.Time `json:"last_message_time,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ConversationFromDocument maps a stored document onto a Conversation.
func ConversationFromDocument(doc docstore.Document) Conversation {
	return Conversation{
		ID:              doc.ID,
		Participants:    doc.StringSlice(ConversationParticipants),
		LastMessage:     doc.StringValue(ConversationLastMessage),
		LastMessageTime: doc.TimeValue(ConversationLastMessageTime),
		CreatedAt:       doc.CreatedAt,
		UpdatedAt:       doc.UpdatedAt,
	}
}
