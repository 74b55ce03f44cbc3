package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"messaging-service/internal/docstore"
	"messaging-service/internal/messaging"
	"messaging-service/internal/models"
)

// Messenger is the messaging surface the HTTP layer depends on.
type Messenger interface {
	GetOrCreateConversation(ctx context.Context, idA, idB string) (models.Conversation, error)
	SendMessage(ctx context.Context, senderID, receiverID, text string) (models.Message, error)
	Messages(ctx context.Context, idA, idB string, limit int) []models.Message
	MarkMessagesAsRead(ctx context.Context, viewerID, peerID string) int
	UnreadCount(ctx context.Context, userID string) (int, error)
	ConversationsForUser(ctx context.Context, userID string) ([]models.Conversation, error)
	DeleteMessage(ctx context.Context, messageID string) error
	DeleteConversation(ctx context.Context, idA, idB string) error
}

// MessageHandler manages direct-messaging endpoints.
type MessageHandler struct {
	svc Messenger
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(svc Messenger) *MessageHandler {
	return &MessageHandler{svc: svc}
}

// StartConversation creates or returns the conversation with a peer.
func (h *MessageHandler) StartConversation(c *gin.Context) {
	var req struct {
		PeerID string `json:"peer_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := c.GetString("userID")
	conv, err := h.svc.GetOrCreateConversation(c.Request.Context(), userID, req.PeerID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": "could not start conversation"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversation_id": conv.ID, "participants": conv.Participants})
}

// ListConversations returns the caller's conversations, newest activity first.
func (h *MessageHandler) ListConversations(c *gin.Context) {
	userID := c.GetString("userID")

	convs, err := h.svc.ConversationsForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversations": convs})
}

// GetMessages returns the chronological history with a peer.
func (h *MessageHandler) GetMessages(c *gin.Context) {
	peerID := c.Param("peer_id")
	userID := c.GetString("userID")

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	msgs := h.svc.Messages(c.Request.Context(), userID, peerID, limit)
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostMessage sends a message to a peer.
func (h *MessageHandler) PostMessage(c *gin.Context) {
	peerID := c.Param("peer_id")
	userID := c.GetString("userID")

	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message text is empty"})
		return
	}

	msg, err := h.svc.SendMessage(c.Request.Context(), userID, peerID, req.Text)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, msg)
}

// MarkRead flips unread messages from the peer to read.
func (h *MessageHandler) MarkRead(c *gin.Context) {
	peerID := c.Param("peer_id")
	userID := c.GetString("userID")

	marked := h.svc.MarkMessagesAsRead(c.Request.Context(), userID, peerID)
	c.JSON(http.StatusOK, gin.H{"marked": marked})
}

// UnreadCount returns the caller's total unread message count.
func (h *MessageHandler) UnreadCount(c *gin.Context) {
	userID := c.GetString("userID")

	count, err := h.svc.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count unread messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"count": count})
}

// DeleteMessage removes a single message.
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	messageID := c.Param("message_id")

	if err := h.svc.DeleteMessage(c.Request.Context(), messageID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, docstore.ErrNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "could not delete message"})
		return
	}

	c.Status(http.StatusNoContent)
}

// DeleteConversation purges the conversation with a peer.
func (h *MessageHandler) DeleteConversation(c *gin.Context) {
	peerID := c.Param("peer_id")
	userID := c.GetString("userID")

	if err := h.svc.DeleteConversation(c.Request.Context(), userID, peerID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete conversation"})
		return
	}

	c.Status(http.StatusNoContent)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, messaging.ErrInvalidParticipant),
		errors.Is(err, messaging.ErrSelfMessage),
		errors.Is(err, messaging.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, messaging.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, messaging.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, docstore.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
