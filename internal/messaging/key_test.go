package messaging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveConversationKeyCommutative(t *testing.T) {
	pairs := [][2]string{
		{"u1", "u2"},
		{"alice", "bob"},
		{"9f86d081-4ca4", "2c26b46b-23bb"},
		{"z", "a"},
	}
	for _, pair := range pairs {
		assert.Equal(t, DeriveConversationKey(pair[0], pair[1]), DeriveConversationKey(pair[1], pair[0]))
	}
}

func TestDeriveConversationKeyStable(t *testing.T) {
	first := DeriveConversationKey("u1", "u2")
	second := DeriveConversationKey("u1", "u2")
	require.Equal(t, first, second)
}

func TestDeriveConversationKeyFitsDocumentID(t *testing.T) {
	key := DeriveConversationKey("some-rather-long-user-identifier", "another-equally-long-identifier")
	require.Len(t, key, 32)
	for _, r := range key {
		assert.True(t, (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f'), "unexpected character %q", r)
	}
}

func TestDeriveConversationKeyDistinctPairs(t *testing.T) {
	assert.NotEqual(t, DeriveConversationKey("u1", "u2"), DeriveConversationKey("u1", "u3"))
	assert.NotEqual(t, DeriveConversationKey("u1", "u2"), DeriveConversationKey("u", "1u2"))
}

func TestDeriveConversationKeySelfPair(t *testing.T) {
	// Still a pure function for a self pair; the pipeline rejects earlier.
	require.Equal(t, DeriveConversationKey("u1", "u1"), DeriveConversationKey("u1", "u1"))
}
