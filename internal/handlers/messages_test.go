package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messaging-service/internal/docstore"
	"messaging-service/internal/messaging"
	"messaging-service/internal/mocks"
	"messaging-service/internal/models"
)

var _ Messenger = (*mocks.MessengerMock)(nil)

func setupRouter(svc Messenger, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", userID)
		c.Next()
	})

	h := NewMessageHandler(svc)
	r.POST("/conversations/start", h.StartConversation)
	r.GET("/conversations", h.ListConversations)
	r.GET("/conversations/:peer_id/messages", h.GetMessages)
	r.POST("/conversations/:peer_id/messages", h.PostMessage)
	r.POST("/conversations/:peer_id/read", h.MarkRead)
	r.DELETE("/conversations/:peer_id", h.DeleteConversation)
	r.GET("/messages/unread-count", h.UnreadCount)
	r.DELETE("/messages/:message_id", h.DeleteMessage)
	return r
}

func doJSON(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestStartConversation(t *testing.T) {
	svc := new(mocks.MessengerMock)
	svc.On("GetOrCreateConversation", mock.Anything, "u1", "u2").
		Return(models.Conversation{ID: "abc", Participants: []string{"u1", "u2"}}, nil)

	w := doJSON(setupRouter(svc, "u1"), http.MethodPost, "/conversations/start", gin.H{"peer_id": "u2"})

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "abc", resp["conversation_id"])
	svc.AssertExpectations(t)
}

func TestStartConversationMissingPeer(t *testing.T) {
	svc := new(mocks.MessengerMock)

	w := doJSON(setupRouter(svc, "u1"), http.MethodPost, "/conversations/start", gin.H{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "GetOrCreateConversation")
}

func TestStartConversationSelfRejected(t *testing.T) {
	svc := new(mocks.MessengerMock)
	svc.On("GetOrCreateConversation", mock.Anything, "u1", "u1").
		Return(nil, messaging.ErrSelfMessage)

	w := doJSON(setupRouter(svc, "u1"), http.MethodPost, "/conversations/start", gin.H{"peer_id": "u1"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostMessage(t *testing.T) {
	svc := new(mocks.MessengerMock)
	sent := models.Message{ID: "m1", SenderID: "u1", ReceiverID: "u2", Text: "hello", CreatedAt: time.Now()}
	svc.On("SendMessage", mock.Anything, "u1", "u2", "hello").Return(sent, nil)

	w := doJSON(setupRouter(svc, "u1"), http.MethodPost, "/conversations/u2/messages", gin.H{"text": "hello"})

	require.Equal(t, http.StatusCreated, w.Code)
	var msg models.Message
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &msg))
	assert.Equal(t, "m1", msg.ID)
	assert.Equal(t, "hello", msg.Text)
	svc.AssertExpectations(t)
}

func TestPostMessageBlankText(t *testing.T) {
	svc := new(mocks.MessengerMock)

	w := doJSON(setupRouter(svc, "u1"), http.MethodPost, "/conversations/u2/messages", gin.H{"text": "   "})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "SendMessage")
}

func TestPostMessageErrorStatuses(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"self message", messaging.ErrSelfMessage, http.StatusBadRequest},
		{"invalid participant", messaging.ErrInvalidParticipant, http.StatusBadRequest},
		{"unauthenticated", messaging.ErrUnauthenticated, http.StatusUnauthorized},
		{"store unavailable", messaging.ErrStoreUnavailable, http.StatusServiceUnavailable},
		{"send failed", messaging.ErrSendFailed, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := new(mocks.MessengerMock)
			svc.On("SendMessage", mock.Anything, "u1", "u2", "hi").Return(nil, tc.err)

			w := doJSON(setupRouter(svc, "u1"), http.MethodPost, "/conversations/u2/messages", gin.H{"text": "hi"})

			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestGetMessages(t *testing.T) {
	svc := new(mocks.MessengerMock)
	svc.On("Messages", mock.Anything, "u1", "u2", 10).
		Return([]models.Message{{ID: "m1", Text: "hello"}})

	w := doJSON(setupRouter(svc, "u1"), http.MethodGet, "/conversations/u2/messages?limit=10", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Messages []models.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "m1", resp.Messages[0].ID)
}

func TestGetMessagesInvalidLimit(t *testing.T) {
	svc := new(mocks.MessengerMock)

	w := doJSON(setupRouter(svc, "u1"), http.MethodGet, "/conversations/u2/messages?limit=oops", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "Messages")
}

func TestMarkRead(t *testing.T) {
	svc := new(mocks.MessengerMock)
	svc.On("MarkMessagesAsRead", mock.Anything, "u1", "u2").Return(3)

	w := doJSON(setupRouter(svc, "u1"), http.MethodPost, "/conversations/u2/read", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]int
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp["marked"])
}

func TestUnreadCount(t *testing.T) {
	svc := new(mocks.MessengerMock)
	svc.On("UnreadCount", mock.Anything, "u1").Return(7, nil)

	w := doJSON(setupRouter(svc, "u1"), http.MethodGet, "/messages/unread-count", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]int
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 7, resp["count"])
}

func TestUnreadCountError(t *testing.T) {
	svc := new(mocks.MessengerMock)
	svc.On("UnreadCount", mock.Anything, "u1").Return(0, errors.New("boom"))

	w := doJSON(setupRouter(svc, "u1"), http.MethodGet, "/messages/unread-count", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestListConversations(t *testing.T) {
	svc := new(mocks.MessengerMock)
	svc.On("ConversationsForUser", mock.Anything, "u1").
		Return([]models.Conversation{{ID: "abc", Participants: []string{"u1", "u2"}}}, nil)

	w := doJSON(setupRouter(svc, "u1"), http.MethodGet, "/conversations", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Conversations []models.Conversation `json:"conversations"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Conversations, 1)
	assert.Equal(t, "abc", resp.Conversations[0].ID)
}

func TestDeleteMessage(t *testing.T) {
	svc := new(mocks.MessengerMock)
	svc.On("DeleteMessage", mock.Anything, "m1").Return(nil)

	w := doJSON(setupRouter(svc, "u1"), http.MethodDelete, "/messages/m1", nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestDeleteMessageNotFound(t *testing.T) {
	svc := new(mocks.MessengerMock)
	svc.On("DeleteMessage", mock.Anything, "missing").Return(docstore.ErrNotFound)

	w := doJSON(setupRouter(svc, "u1"), http.MethodDelete, "/messages/missing", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteConversation(t *testing.T) {
	svc := new(mocks.MessengerMock)
	svc.On("DeleteConversation", mock.Anything, "u1", "u2").Return(nil)

	w := doJSON(setupRouter(svc, "u1"), http.MethodDelete, "/conversations/u2", nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	svc.AssertExpectations(t)
}
