package models

import (
	"time"

	"messaging-service/internal/docstore"
)

// Document attribute names for message records.
const (
	MessageConversationID = "conversation_id"
	MessageSenderID       = "sender_id"
	MessageReceiverID     = "receiver_id"
	MessageText           = "text"
	MessageIsRead         = "is_read"
)

// Message is a single direct message threaded into a conversation.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	ReceiverID     string    `json:"receiver_id"`
	Text           string    `json:"text"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}

// MessageFromDocument maps a stored document onto a Message.
func MessageFromDocument(doc docstore.Document) Message {
	return Message{
		ID:             doc.ID,
		ConversationID: doc.StringValue(MessageConversationID),
		SenderID:       doc.StringValue(MessageSenderID),
		ReceiverID:     doc.StringValue(MessageReceiverID),
		Text:           doc.StringValue(MessageText),
		IsRead:         doc.BoolValue(MessageIsRead),
		CreatedAt:      doc.CreatedAt,
	}
}
