package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"messaging-service/internal/docstore"
	"messaging-service/internal/models"
)

type StoreMock struct {
	mock.Mock
}

func (m *StoreMock) GetDocument(ctx context.Context, databaseID, collectionID, documentID string) (docstore.Document, error) {
	args := m.Called(ctx, databaseID, collectionID, documentID)
	var doc docstore.Document
	if val := args.Get(0); val != nil {
		doc = val.(docstore.Document)
	}
	return doc, args.Error(1)
}

func (m *StoreMock) CreateDocument(ctx context.Context, databaseID, collectionID, documentID string, data map[string]any) (docstore.Document, error) {
	args := m.Called(ctx, databaseID, collectionID, documentID, data)
	var doc docstore.Document
	if val := args.Get(0); val != nil {
		doc = val.(docstore.Document)
	}
	return doc, args.Error(1)
}

func (m *StoreMock) UpdateDocument(ctx context.Context, databaseID, collectionID, documentID string, data map[string]any) (docstore.Document, error) {
	args := m.Called(ctx, databaseID, collectionID, documentID, data)
	var doc docstore.Document
	if val := args.Get(0); val != nil {
		doc = val.(docstore.Document)
	}
	return doc, args.Error(1)
}

func (m *StoreMock) DeleteDocument(ctx context.Context, databaseID, collectionID, documentID string) error {
	args := m.Called(ctx, databaseID, collectionID, documentID)
	return args.Error(0)
}

func (m *StoreMock) ListDocuments(ctx context.Context, databaseID, collectionID string, queries []docstore.Query) (docstore.List, error) {
	args := m.Called(ctx, databaseID, collectionID, queries)
	var list docstore.List
	if val := args.Get(0); val != nil {
		list = val.(docstore.List)
	}
	return list, args.Error(1)
}

type MessengerMock struct {
	mock.Mock
}

func (m *MessengerMock) GetOrCreateConversation(ctx context.Context, idA, idB string) (models.Conversation, error) {
	args := m.Called(ctx, idA, idB)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *MessengerMock) SendMessage(ctx context.Context, senderID, receiverID, text string) (models.Message, error) {
	args := m.Called(ctx, senderID, receiverID, text)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessengerMock) Messages(ctx context.Context, idA, idB string, limit int) []models.Message {
	args := m.Called(ctx, idA, idB, limit)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs
}

func (m *MessengerMock) MarkMessagesAsRead(ctx context.Context, viewerID, peerID string) int {
	args := m.Called(ctx, viewerID, peerID)
	return args.Int(0)
}

func (m *MessengerMock) UnreadCount(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MessengerMock) ConversationsForUser(ctx context.Context, userID string) ([]models.Conversation, error) {
	args := m.Called(ctx, userID)
	var convs []models.Conversation
	if val := args.Get(0); val != nil {
		convs = val.([]models.Conversation)
	}
	return convs, args.Error(1)
}

func (m *MessengerMock) DeleteMessage(ctx context.Context, messageID string) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

func (m *MessengerMock) DeleteConversation(ctx context.Context, idA, idB string) error {
	args := m.Called(ctx, idA, idB)
	return args.Error(0)
}

type TokenValidatorMock struct {
	mock.Mock
}

func (m *TokenValidatorMock) ValidateToken(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

var _ docstore.Store = (*StoreMock)(nil)
