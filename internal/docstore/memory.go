package docstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store used by tests and local runs.
type MemoryStore struct {
	mu       sync.RWMutex
	docs     map[string]map[string]Document
	notifier Notifier
	now      func() time.Time
	last     time.Time
}

// NewMemoryStore creates an empty store. The notifier may be nil.
func NewMemoryStore(notifier Notifier) *MemoryStore {
	return &MemoryStore{
		docs:     make(map[string]map[string]Document),
		notifier: notifier,
		now:      time.Now,
	}
}

func collectionKey(databaseID, collectionID string) string {
	return databaseID + "/" + collectionID
}

// GetDocument returns a document by ID.
func (s *MemoryStore) GetDocument(ctx context.Context, databaseID, collectionID, documentID string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[collectionKey(databaseID, collectionID)][documentID]
	if !ok {
		return Document{}, ErrNotFound
	}
	return copyDocument(doc), nil
}

// CreateDocument stores a new document, generating an ID when requested.
func (s *MemoryStore) CreateDocument(ctx context.Context, databaseID, collectionID, documentID string, data map[string]any) (Document, error) {
	if data == nil {
		return Document{}, ErrInvalidData
	}

	s.mu.Lock()
	key := collectionKey(databaseID, collectionID)
	if s.docs[key] == nil {
		s.docs[key] = make(map[string]Document)
	}
	if documentID == AutoID {
		documentID = uuid.NewString()
	}
	if _, exists := s.docs[key][documentID]; exists {
		s.mu.Unlock()
		return Document{}, ErrConflict
	}
	now := s.timestamp()
	doc := Document{
		ID:           documentID,
		DatabaseID:   databaseID,
		CollectionID: collectionID,
		Data:         copyData(data),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.docs[key][documentID] = doc
	s.mu.Unlock()

	s.notify(ChangeCreate, doc)
	return copyDocument(doc), nil
}

// UpdateDocument merges the partial payload into an existing document.
func (s *MemoryStore) UpdateDocument(ctx context.Context, databaseID, collectionID, documentID string, data map[string]any) (Document, error) {
	s.mu.Lock()
	key := collectionKey(databaseID, collectionID)
	doc, ok := s.docs[key][documentID]
	if !ok {
		s.mu.Unlock()
		return Document{}, ErrNotFound
	}
	for k, v := range copyData(data) {
		doc.Data[k] = v
	}
	doc.UpdatedAt = s.timestamp()
	s.docs[key][documentID] = doc
	s.mu.Unlock()

	s.notify(ChangeUpdate, doc)
	return copyDocument(doc), nil
}

// DeleteDocument removes a document.
func (s *MemoryStore) DeleteDocument(ctx context.Context, databaseID, collectionID, documentID string) error {
	s.mu.Lock()
	key := collectionKey(databaseID, collectionID)
	doc, ok := s.docs[key][documentID]
	if !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	delete(s.docs[key], documentID)
	s.mu.Unlock()

	s.notify(ChangeDelete, doc)
	return nil
}

// ListDocuments applies equality filters, ordering and a limit.
func (s *MemoryStore) ListDocuments(ctx context.Context, databaseID, collectionID string, queries []Query) (List, error) {
	s.mu.RLock()
	var matched []Document
	for _, doc := range s.docs[collectionKey(databaseID, collectionID)] {
		if matchesFilters(doc, queries) {
			matched = append(matched, copyDocument(doc))
		}
	}
	s.mu.RUnlock()

	orderAttr, desc := "", false
	limit := 0
	for _, q := range queries {
		switch q.kind {
		case queryOrderAsc:
			orderAttr, desc = q.attribute, false
		case queryOrderDesc:
			orderAttr, desc = q.attribute, true
		case queryLimit:
			limit = q.limit
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if orderAttr != "" {
			less, equal := lessByAttribute(matched[i], matched[j], orderAttr)
			if !equal {
				if desc {
					return !less
				}
				return less
			}
		}
		// Stable fallback so equal keys keep a deterministic order.
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	total := len(matched)
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return List{Total: total, Documents: matched}, nil
}

// timestamp returns a strictly increasing clock reading so creation order is
// preserved even when the wall clock does not advance between writes.
// Callers must hold the write lock.
func (s *MemoryStore) timestamp() time.Time {
	now := s.now().UTC()
	if !now.After(s.last) {
		now = s.last.Add(time.Nanosecond)
	}
	s.last = now
	return now
}

func (s *MemoryStore) notify(kind ChangeKind, doc Document) {
	if s.notifier != nil {
		s.notifier.DocumentChanged(kind, copyDocument(doc))
	}
}

func matchesFilters(doc Document, queries []Query) bool {
	for _, q := range queries {
		if q.kind != queryEqual {
			continue
		}
		if !valueMatches(doc.Data[q.attribute], q.value) {
			return false
		}
	}
	return true
}

func valueMatches(stored, want any) bool {
	switch arr := stored.(type) {
	case []string:
		for _, item := range arr {
			if valueMatches(item, want) {
				return true
			}
		}
		return false
	case []any:
		for _, item := range arr {
			if valueMatches(item, want) {
				return true
			}
		}
		return false
	}
	if stored == nil {
		return want == nil
	}
	return fmt.Sprint(stored) == fmt.Sprint(want)
}

func lessByAttribute(a, b Document, attribute string) (less, equal bool) {
	switch attribute {
	case AttrCreatedAt:
		return a.CreatedAt.Before(b.CreatedAt), a.CreatedAt.Equal(b.CreatedAt)
	case AttrUpdatedAt:
		return a.UpdatedAt.Before(b.UpdatedAt), a.UpdatedAt.Equal(b.UpdatedAt)
	}
	av, bv := fmt.Sprint(a.Data[attribute]), fmt.Sprint(b.Data[attribute])
	return av < bv, av == bv
}

func copyDocument(doc Document) Document {
	doc.Data = copyData(doc.Data)
	return doc
}

func copyData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for k, v := range data {
		switch arr := v.(type) {
		case []string:
			cp := make([]string, len(arr))
			copy(cp, arr)
			out[k] = cp
		case []any:
			cp := make([]any, len(arr))
			copy(cp, arr)
			out[k] = cp
		default:
			out[k] = v
		}
	}
	return out
}
