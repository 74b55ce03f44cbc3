package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/docstore"
)

func TestDocumentsChannel(t *testing.T) {
	channel := DocumentsChannel("eventflow", "messages")
	assert.Equal(t, "databases.eventflow.collections.messages.documents", channel)
}

func TestEventForDocument(t *testing.T) {
	doc := docstore.Document{
		ID:           "m1",
		DatabaseID:   "eventflow",
		CollectionID: "messages",
		Data:         map[string]any{"text": "hi"},
	}

	ev := EventForDocument(docstore.ChangeCreate, doc)

	require.Len(t, ev.Events, 1)
	assert.Equal(t, "databases.eventflow.collections.messages.documents.m1.create", ev.Events[0])
	require.Len(t, ev.Channels, 1)
	assert.Equal(t, "databases.eventflow.collections.messages.documents", ev.Channels[0])
	assert.Equal(t, "m1", ev.Payload.ID)
	assert.False(t, ev.Timestamp.IsZero())
}

func TestEventHasAction(t *testing.T) {
	ev := Event{Events: []string{"databases.d.collections.c.documents.m1.update"}}

	assert.True(t, ev.HasAction(ActionUpdate))
	assert.False(t, ev.HasAction(ActionCreate))
	assert.False(t, ev.HasAction(ActionDelete))
}

func TestActionOf(t *testing.T) {
	assert.Equal(t, "create", actionOf("databases.d.collections.c.documents.m1.create"))
	assert.Equal(t, "delete", actionOf("databases.d.collections.c.documents.m1.delete"))
	assert.Equal(t, "unknown", actionOf("databases.d.collections.c.documents"))
}
