package rabbitmq

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPublisherFallsBackToNoop(t *testing.T) {
	pub := NewPublisher("", "messaging.events")
	defer pub.Close()

	assert.Equal(t, "noop", PublisherMode(pub))
	assert.Equal(t, "empty amqp url", PublisherNoopReason(pub))
}

func TestNoopPublisherSwallowsEvents(t *testing.T) {
	pub := NewPublisher("", "messaging.events")
	defer pub.Close()

	err := pub.Publish(context.Background(), "messages.sent", map[string]any{"message_id": "m1"})
	require.NoError(t, err)
}

func TestPublisherNoopReasonEmptyForAMQP(t *testing.T) {
	assert.Empty(t, PublisherNoopReason(&amqpPublisher{}))
	assert.Equal(t, "unknown", PublisherMode(nil))
}
