package messaging

import (
	"sync"

	"messaging-service/internal/models"
	"messaging-service/internal/realtime"
)

// seenLimit bounds the per-subscription ring of recently delivered message IDs.
const seenLimit = 128

// SubscribeToMessages opens a listener on the messages collection and invokes
// onMessage for every newly created message in the conversation. The channel
// is collection-wide; filtering on the conversation key happens here. A
// bounded ring of recently seen message IDs drops transport redeliveries.
// The returned function cancels the subscription.
func (s *Service) SubscribeToMessages(conversationID string, onMessage func(models.Message)) (func(), error) {
	if conversationID == "" {
		return nil, ErrInvalidRequest
	}

	var (
		mu    sync.Mutex
		seen  = make(map[string]struct{}, seenLimit)
		order = make([]string, 0, seenLimit)
	)

	channel := realtime.DocumentsChannel(s.cfg.DatabaseID, s.cfg.MessagesCollectionID)
	unsubscribe := s.feed.Subscribe([]string{channel}, func(ev realtime.Event) {
		if !ev.HasAction(realtime.ActionCreate) {
			return
		}
		msg := models.MessageFromDocument(ev.Payload)
		if msg.ConversationID != conversationID {
			return
		}

		mu.Lock()
		if _, dup := seen[msg.ID]; dup {
			mu.Unlock()
			return
		}
		seen[msg.ID] = struct{}{}
		order = append(order, msg.ID)
		if len(order) > seenLimit {
			delete(seen, order[0])
			order = order[1:]
		}
		mu.Unlock()

		onMessage(msg)
	})
	return unsubscribe, nil
}
