package realtime

import (
	"fmt"
	"strings"
	"time"

	"messaging-service/internal/docstore"
)

// Actions carried by change-event strings.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Event is a single document change delivered to subscribers.
type Event struct {
	Events    []string          `json:"events"`
	Channels  []string          `json:"channels"`
	Timestamp time.Time         `json:"timestamp"`
	Payload   docstore.Document `json:"payload"`
}

// DocumentsChannel names the collection-wide document channel.
func DocumentsChannel(databaseID, collectionID string) string {
	return fmt.Sprintf("databases.%s.collections.%s.documents", databaseID, collectionID)
}

func documentEvent(databaseID, collectionID, documentID, action string) string {
	return fmt.Sprintf("databases.%s.collections.%s.documents.%s.%s", databaseID, collectionID, documentID, action)
}

// HasAction reports whether any of the event strings ends in the action.
func (e Event) HasAction(action string) bool {
	for _, ev := range e.Events {
		if strings.HasSuffix(ev, "."+action) {
			return true
		}
	}
	return false
}

// EventForDocument builds the event emitted for a document change.
func EventForDocument(kind docstore.ChangeKind, doc docstore.Document) Event {
	channel := DocumentsChannel(doc.DatabaseID, doc.CollectionID)
	return Event{
		Events:    []string{documentEvent(doc.DatabaseID, doc.CollectionID, doc.ID, string(kind))},
		Channels:  []string{channel},
		Timestamp: time.Now().UTC(),
		Payload:   doc,
	}
}
