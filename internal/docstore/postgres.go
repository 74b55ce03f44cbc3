package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const pqUniqueViolation = "23505"

// PostgresStore keeps documents in a single JSONB-backed table.
type PostgresStore struct {
	db       *sqlx.DB
	notifier Notifier
}

// Connect opens the database, runs migrations and returns a store. The
// notifier may be nil.
func Connect(dsn string, notifier Notifier) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresStore{db: db, notifier: notifier}, nil
}

// NewPostgresStore wraps an existing connection without running migrations.
func NewPostgresStore(db *sqlx.DB, notifier Notifier) *PostgresStore {
	return &PostgresStore{db: db, notifier: notifier}
}

func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS documents (
            database_id TEXT NOT NULL,
            collection_id TEXT NOT NULL,
            id TEXT NOT NULL,
            data JSONB NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            PRIMARY KEY (database_id, collection_id, id)
        );`,
		`CREATE INDEX IF NOT EXISTS idx_documents_data ON documents USING GIN (data);`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	log.Println("database migrations applied")
	return nil
}

type documentRow struct {
	DatabaseID   string    `db:"database_id"`
	CollectionID string    `db:"collection_id"`
	ID           string    `db:"id"`
	Data         []byte    `db:"data"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r documentRow) document() (Document, error) {
	var data map[string]any
	if err := json.Unmarshal(r.Data, &data); err != nil {
		return Document{}, fmt.Errorf("decode document %s: %w", r.ID, err)
	}
	return Document{
		ID:           r.ID,
		DatabaseID:   r.DatabaseID,
		CollectionID: r.CollectionID,
		Data:         data,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}, nil
}

// GetDocument fetches a document by ID.
func (s *PostgresStore) GetDocument(ctx context.Context, databaseID, collectionID, documentID string) (Document, error) {
	var row documentRow
	err := s.db.GetContext(ctx, &row,
		`SELECT database_id, collection_id, id, data, created_at, updated_at FROM documents
         WHERE database_id=$1 AND collection_id=$2 AND id=$3`,
		databaseID, collectionID, documentID)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}
	return row.document()
}

// CreateDocument inserts a new document and emits a create event.
func (s *PostgresStore) CreateDocument(ctx context.Context, databaseID, collectionID, documentID string, data map[string]any) (Document, error) {
	if data == nil {
		return Document{}, ErrInvalidData
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	if documentID == AutoID {
		documentID = uuid.NewString()
	}

	var row documentRow
	err = s.db.GetContext(ctx, &row,
		`INSERT INTO documents (database_id, collection_id, id, data) VALUES ($1, $2, $3, $4)
         RETURNING database_id, collection_id, id, data, created_at, updated_at`,
		databaseID, collectionID, documentID, payload)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return Document{}, ErrConflict
		}
		return Document{}, err
	}

	doc, err := row.document()
	if err != nil {
		return Document{}, err
	}
	s.notify(ChangeCreate, doc)
	return doc, nil
}

// UpdateDocument merges the partial payload into an existing document.
func (s *PostgresStore) UpdateDocument(ctx context.Context, databaseID, collectionID, documentID string, data map[string]any) (Document, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}

	var row documentRow
	err = s.db.GetContext(ctx, &row,
		`UPDATE documents SET data = data || $4, updated_at = NOW()
         WHERE database_id=$1 AND collection_id=$2 AND id=$3
         RETURNING database_id, collection_id, id, data, created_at, updated_at`,
		databaseID, collectionID, documentID, payload)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, err
	}

	doc, err := row.document()
	if err != nil {
		return Document{}, err
	}
	s.notify(ChangeUpdate, doc)
	return doc, nil
}

// DeleteDocument removes a document and emits a delete event.
func (s *PostgresStore) DeleteDocument(ctx context.Context, databaseID, collectionID, documentID string) error {
	var row documentRow
	err := s.db.GetContext(ctx, &row,
		`DELETE FROM documents WHERE database_id=$1 AND collection_id=$2 AND id=$3
         RETURNING database_id, collection_id, id, data, created_at, updated_at`,
		databaseID, collectionID, documentID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	doc, err := row.document()
	if err != nil {
		return err
	}
	s.notify(ChangeDelete, doc)
	return nil
}

// ListDocuments applies equality filters, ordering and a limit.
func (s *PostgresStore) ListDocuments(ctx context.Context, databaseID, collectionID string, queries []Query) (List, error) {
	where := []string{"database_id=$1", "collection_id=$2"}
	args := []any{databaseID, collectionID}
	orderAttr, orderDir := AttrCreatedAt, "ASC"
	limit := 0

	for _, q := range queries {
		switch q.kind {
		case queryEqual:
			attr := fmt.Sprintf("$%d", len(args)+1)
			val := fmt.Sprintf("$%d", len(args)+2)
			// ->> handles scalar attributes, @> handles membership in arrays.
			where = append(where, fmt.Sprintf("(data->>%s = %s OR data->%s @> to_jsonb(%s::text))", attr, val, attr, val))
			args = append(args, q.attribute, fmt.Sprint(q.value))
		case queryOrderAsc:
			orderAttr, orderDir = q.attribute, "ASC"
		case queryOrderDesc:
			orderAttr, orderDir = q.attribute, "DESC"
		case queryLimit:
			limit = q.limit
		}
	}

	filter := strings.Join(where, " AND ")

	var total int
	if err := s.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM documents WHERE "+filter, args...); err != nil {
		return List{}, err
	}

	selectArgs := args
	orderBy := orderExpr(orderAttr, &selectArgs) + " " + orderDir
	query := "SELECT database_id, collection_id, id, data, created_at, updated_at FROM documents WHERE " +
		filter + " ORDER BY " + orderBy + ", id ASC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	var rows []documentRow
	if err := s.db.SelectContext(ctx, &rows, query, selectArgs...); err != nil {
		return List{}, err
	}

	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		doc, err := row.document()
		if err != nil {
			return List{}, err
		}
		docs = append(docs, doc)
	}
	return List{Total: total, Documents: docs}, nil
}

func orderExpr(attribute string, args *[]any) string {
	switch attribute {
	case AttrCreatedAt:
		return "created_at"
	case AttrUpdatedAt:
		return "updated_at"
	}
	*args = append(*args, attribute)
	return fmt.Sprintf("data->>$%d", len(*args))
}

func (s *PostgresStore) notify(kind ChangeKind, doc Document) {
	if s.notifier != nil {
		s.notifier.DocumentChanged(kind, doc)
	}
}

var _ Store = (*PostgresStore)(nil)
var _ Store = (*MemoryStore)(nil)
