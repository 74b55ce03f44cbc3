package docstore

import (
	"context"
	"errors"
	"time"
)

// AutoID requests a server-generated document ID on create.
const AutoID = ""

// Attribute names resolved against document metadata instead of payload data.
const (
	AttrCreatedAt = "created_at"
	AttrUpdatedAt = "updated_at"
)

var (
	ErrNotFound     = errors.New("document not found")
	ErrConflict     = errors.New("document already exists")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidData  = errors.New("invalid document data")
)

// Document is a single record in a named collection.
type Document struct {
	ID           string         `json:"id"`
	DatabaseID   string         `json:"database_id"`
	CollectionID string         `json:"collection_id"`
	Data         map[string]any `json:"data"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// List is a page of documents plus the total match count before limiting.
type List struct {
	Total     int        `json:"total"`
	Documents []Document `json:"documents"`
}

// Store is the document-store collaborator contract. Equality filters on an
// array-valued attribute match on membership.
type Store interface {
	GetDocument(ctx context.Context, databaseID, collectionID, documentID string) (Document, error)
	CreateDocument(ctx context.Context, databaseID, collectionID, documentID string, data map[string]any) (Document, error)
	UpdateDocument(ctx context.Context, databaseID, collectionID, documentID string, data map[string]any) (Document, error)
	DeleteDocument(ctx context.Context, databaseID, collectionID, documentID string) error
	ListDocuments(ctx context.Context, databaseID, collectionID string, queries []Query) (List, error)
}

// ChangeKind identifies the write a change event describes.
type ChangeKind string

const (
	ChangeCreate ChangeKind = "create"
	ChangeUpdate ChangeKind = "update"
	ChangeDelete ChangeKind = "delete"
)

// Notifier receives a change event after every successful write.
type Notifier interface {
	DocumentChanged(kind ChangeKind, doc Document)
}

// StringValue returns the payload attribute as a string, or "".
func (d Document) StringValue(key string) string {
	if s, ok := d.Data[key].(string); ok {
		return s
	}
	return ""
}

// BoolValue returns the payload attribute as a bool, or false.
func (d Document) BoolValue(key string) bool {
	if b, ok := d.Data[key].(bool); ok {
		return b
	}
	return false
}

// TimeValue parses an RFC3339 payload attribute, or returns the zero time.
func (d Document) TimeValue(key string) time.Time {
	s, ok := d.Data[key].(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// StringSlice returns the payload attribute as a string slice. JSON decoding
// turns arrays into []any, so both shapes are handled.
func (d Document) StringSlice(key string) []string {
	switch v := d.Data[key].(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
