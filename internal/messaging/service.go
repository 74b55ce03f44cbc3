package messaging

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"messaging-service/internal/docstore"
	"messaging-service/internal/models"
	"messaging-service/internal/observability"
	"messaging-service/internal/realtime"
)

const (
	// DefaultHistoryLimit bounds a history page when the caller passes no limit.
	DefaultHistoryLimit = 50
	// maxPreviewLen truncates the conversation's last-message preview.
	maxPreviewLen = 100
	// maxMessageLen bounds the message body after trimming.
	maxMessageLen = 4096

	purgePageSize = 100
)

// Config carries the backend identifiers the service operates on.
type Config struct {
	DatabaseID                string
	ConversationsCollectionID string
	MessagesCollectionID      string
}

// Feed is the change-event subscription primitive the realtime listener uses.
type Feed interface {
	Subscribe(channels []string, handler func(realtime.Event)) func()
}

// Notifier publishes best-effort notification events after a send.
type Notifier interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// Service implements the direct-messaging core against an injected document
// store and change feed.
type Service struct {
	store    docstore.Store
	feed     Feed
	notifier Notifier
	cfg      Config
}

// NewService constructs a Service. The notifier may be nil.
func NewService(store docstore.Store, feed Feed, notifier Notifier, cfg Config) *Service {
	return &Service{store: store, feed: feed, notifier: notifier, cfg: cfg}
}

// GetOrCreateConversation returns the conversation for the pair, creating it
// on first contact. A create that loses the first-contact race is treated as
// "already exists" and the winning record is fetched.
func (s *Service) GetOrCreateConversation(ctx context.Context, idA, idB string) (models.Conversation, error) {
	if idA == "" || idB == "" {
		return models.Conversation{}, ErrInvalidParticipant
	}
	if idA == idB {
		return models.Conversation{}, ErrSelfMessage
	}

	key := DeriveConversationKey(idA, idB)
	doc, err := s.store.GetDocument(ctx, s.cfg.DatabaseID, s.cfg.ConversationsCollectionID, key)
	if err == nil {
		return models.ConversationFromDocument(doc), nil
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		return models.Conversation{}, fmt.Errorf("lookup conversation: %w", err)
	}

	doc, err = s.store.CreateDocument(ctx, s.cfg.DatabaseID, s.cfg.ConversationsCollectionID, key, map[string]any{
		models.ConversationParticipants: []string{idA, idB},
	})
	if errors.Is(err, docstore.ErrConflict) {
		doc, err = s.store.GetDocument(ctx, s.cfg.DatabaseID, s.cfg.ConversationsCollectionID, key)
	}
	if err != nil {
		return models.Conversation{}, fmt.Errorf("create conversation: %w", err)
	}
	return models.ConversationFromDocument(doc), nil
}

// SendMessage validates, persists and threads a message into its conversation,
// then updates the conversation summary best-effort. The message counts as
// sent once its document exists; a failed summary update is logged only.
func (s *Service) SendMessage(ctx context.Context, senderID, receiverID, text string) (models.Message, error) {
	ctx, span := otel.Tracer("messaging-service/messaging").Start(ctx, "messaging.send")
	defer span.End()

	if senderID == "" || receiverID == "" {
		return models.Message{}, ErrInvalidParticipant
	}
	if senderID == receiverID {
		return models.Message{}, ErrSelfMessage
	}

	trimmed := strings.TrimSpace(text)
	if len(trimmed) > maxMessageLen {
		return models.Message{}, fmt.Errorf("%w: message exceeds %d bytes", ErrInvalidRequest, maxMessageLen)
	}

	conv, err := s.GetOrCreateConversation(ctx, senderID, receiverID)
	if err != nil {
		if isCallerError(err) {
			return models.Message{}, err
		}
		return models.Message{}, classifySendErr(err)
	}
	span.SetAttributes(attribute.String("conversation.id", conv.ID))

	doc, err := s.store.CreateDocument(ctx, s.cfg.DatabaseID, s.cfg.MessagesCollectionID, docstore.AutoID, map[string]any{
		models.MessageConversationID: conv.ID,
		models.MessageSenderID:       senderID,
		models.MessageReceiverID:     receiverID,
		models.MessageText:           trimmed,
		models.MessageIsRead:         false,
	})
	if err != nil {
		return models.Message{}, classifySendErr(err)
	}
	msg := models.MessageFromDocument(doc)

	// Summary fields are a cache; the send already succeeded.
	if _, err := s.store.UpdateDocument(ctx, s.cfg.DatabaseID, s.cfg.ConversationsCollectionID, conv.ID, map[string]any{
		models.ConversationLastMessage:     preview(trimmed),
		models.ConversationLastMessageTime: time.Now().UTC().Format(time.RFC3339Nano),
	}); err != nil {
		log.Printf("conversation summary update failed conversation=%s: %v", conv.ID, err)
	}

	s.publishSent(ctx, msg)
	observability.IncMessageSent()
	return msg, nil
}

// Messages returns the conversation history in chronological order, bounded
// to limit. Backend failures degrade to an empty history.
func (s *Service) Messages(ctx context.Context, idA, idB string, limit int) []models.Message {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	key := DeriveConversationKey(idA, idB)

	list, err := s.store.ListDocuments(ctx, s.cfg.DatabaseID, s.cfg.MessagesCollectionID, []docstore.Query{
		docstore.Equal(models.MessageConversationID, key),
		docstore.OrderDesc(docstore.AttrCreatedAt),
		docstore.Limit(limit),
	})
	if err != nil {
		log.Printf("message history fetch failed conversation=%s: %v", key, err)
		observability.IncHistoryFetchFailure()
		return nil
	}

	msgs := make([]models.Message, 0, len(list.Documents))
	for i := len(list.Documents) - 1; i >= 0; i-- {
		msgs = append(msgs, models.MessageFromDocument(list.Documents[i]))
	}
	return msgs
}

// MarkMessagesAsRead flips every unread message the peer sent to the viewer
// and returns how many were flipped. Each update is independently idempotent;
// failures are logged and the remaining updates still run, so a partial pass
// completes on the next call.
func (s *Service) MarkMessagesAsRead(ctx context.Context, viewerID, peerID string) int {
	key := DeriveConversationKey(viewerID, peerID)

	list, err := s.store.ListDocuments(ctx, s.cfg.DatabaseID, s.cfg.MessagesCollectionID, []docstore.Query{
		docstore.Equal(models.MessageConversationID, key),
		docstore.Equal(models.MessageReceiverID, viewerID),
		docstore.Equal(models.MessageIsRead, false),
	})
	if err != nil {
		log.Printf("unread scan failed conversation=%s viewer=%s: %v", key, viewerID, err)
		return 0
	}

	marked := 0
	for _, doc := range list.Documents {
		if _, err := s.store.UpdateDocument(ctx, s.cfg.DatabaseID, s.cfg.MessagesCollectionID, doc.ID, map[string]any{
			models.MessageIsRead: true,
		}); err != nil {
			log.Printf("mark read failed message=%s: %v", doc.ID, err)
			continue
		}
		marked++
	}
	return marked
}

// UnreadCount returns the number of unread messages addressed to the user
// across all conversations.
func (s *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	list, err := s.store.ListDocuments(ctx, s.cfg.DatabaseID, s.cfg.MessagesCollectionID, []docstore.Query{
		docstore.Equal(models.MessageReceiverID, userID),
		docstore.Equal(models.MessageIsRead, false),
		docstore.Limit(1),
	})
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return list.Total, nil
}

// ConversationsForUser lists the user's conversations, most recently updated
// first.
func (s *Service) ConversationsForUser(ctx context.Context, userID string) ([]models.Conversation, error) {
	list, err := s.store.ListDocuments(ctx, s.cfg.DatabaseID, s.cfg.ConversationsCollectionID, []docstore.Query{
		docstore.Equal(models.ConversationParticipants, userID),
		docstore.OrderDesc(docstore.AttrUpdatedAt),
	})
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}

	convs := make([]models.Conversation, 0, len(list.Documents))
	for _, doc := range list.Documents {
		convs = append(convs, models.ConversationFromDocument(doc))
	}
	return convs, nil
}

// DeleteMessage removes a single message. Exceptional-path utility.
func (s *Service) DeleteMessage(ctx context.Context, messageID string) error {
	return s.store.DeleteDocument(ctx, s.cfg.DatabaseID, s.cfg.MessagesCollectionID, messageID)
}

// DeleteConversation purges a conversation and all of its messages.
// Exceptional-path utility; normal flow never deletes conversations.
func (s *Service) DeleteConversation(ctx context.Context, idA, idB string) error {
	key := DeriveConversationKey(idA, idB)

	for {
		list, err := s.store.ListDocuments(ctx, s.cfg.DatabaseID, s.cfg.MessagesCollectionID, []docstore.Query{
			docstore.Equal(models.MessageConversationID, key),
			docstore.Limit(purgePageSize),
		})
		if err != nil {
			return fmt.Errorf("list messages for purge: %w", err)
		}
		if len(list.Documents) == 0 {
			break
		}
		for _, doc := range list.Documents {
			if err := s.store.DeleteDocument(ctx, s.cfg.DatabaseID, s.cfg.MessagesCollectionID, doc.ID); err != nil && !errors.Is(err, docstore.ErrNotFound) {
				return fmt.Errorf("delete message %s: %w", doc.ID, err)
			}
		}
	}

	err := s.store.DeleteDocument(ctx, s.cfg.DatabaseID, s.cfg.ConversationsCollectionID, key)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil
	}
	return err
}

func (s *Service) publishSent(ctx context.Context, msg models.Message) {
	if s.notifier == nil {
		return
	}
	event := map[string]any{
		"message_id":      msg.ID,
		"conversation_id": msg.ConversationID,
		"sender_id":       msg.SenderID,
		"receiver_id":     msg.ReceiverID,
	}
	if err := s.notifier.Publish(ctx, "messages.sent", event); err != nil {
		log.Printf("message notification publish failed message=%s: %v", msg.ID, err)
	}
}

func isCallerError(err error) bool {
	return errors.Is(err, ErrInvalidParticipant) || errors.Is(err, ErrSelfMessage)
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= maxPreviewLen {
		return text
	}
	return string(runes[:maxPreviewLen])
}
