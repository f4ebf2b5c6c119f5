package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/msomdec/travelupa/internal/domain"
)

// CatalogStore implements domain.CatalogStore on a SQLite table of JSON
// documents. Change notification is in-process: every committed write made
// through this store re-reads the collection and pushes it to all listeners.
type CatalogStore struct {
	db         *sql.DB
	collection string

	// notifyMu orders snapshots: a listener never sees an older catalog after a newer one.
	notifyMu sync.Mutex

	mu        sync.Mutex
	listeners map[uint64]domain.CatalogListener
	nextID    uint64
}

var _ domain.CatalogStore = (*CatalogStore)(nil)

// NewCatalogStore returns a store for one collection.
func NewCatalogStore(db *sql.DB, collection string) *CatalogStore {
	return &CatalogStore{
		db:         db,
		collection: collection,
		listeners:  make(map[uint64]domain.CatalogListener),
	}
}

func (s *CatalogStore) NewID() string {
	return uuid.NewString()
}

func (s *CatalogStore) Upsert(ctx context.Context, id string, fields map[string]string) error {
	if id == "" {
		return fmt.Errorf("%w: empty document id", domain.ErrInvalidInput)
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO catalog_documents (collection, id, fields) VALUES (?, ?, ?)
		 ON CONFLICT(collection, id) DO UPDATE SET
			fields = excluded.fields,
			updated_at = CURRENT_TIMESTAMP`,
		s.collection, id, string(data),
	)
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}

	s.notify()
	return nil
}

func (s *CatalogStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM catalog_documents WHERE collection = ? AND id = ?", s.collection, id,
	)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}

	s.notify()
	return nil
}

// List returns the collection in insertion order.
func (s *CatalogStore) List(ctx context.Context) ([]domain.CatalogDocument, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, fields FROM catalog_documents WHERE collection = ? ORDER BY rowid", s.collection,
	)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := []domain.CatalogDocument{}
	for rows.Next() {
		var (
			doc domain.CatalogDocument
			raw string
		)
		if err := rows.Scan(&doc.ID, &raw); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &doc.Fields); err != nil {
			return nil, fmt.Errorf("decode document %s: %w", doc.ID, err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Listen registers listener and delivers the current collection before returning.
func (s *CatalogStore) Listen(listener domain.CatalogListener) (domain.ListenerRegistration, error) {
	if listener == nil {
		return nil, fmt.Errorf("%w: nil listener", domain.ErrInvalidInput)
	}

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = listener
	s.mu.Unlock()

	docs, err := s.List(context.Background())
	if err != nil {
		listener(nil, fmt.Errorf("%w: %v", domain.ErrListen, err))
	} else {
		listener(docs, nil)
	}

	return &registration{remove: func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}}, nil
}

func (s *CatalogStore) notify() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	listeners := make([]domain.CatalogListener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	if len(listeners) == 0 {
		return
	}

	docs, err := s.List(context.Background())
	if err != nil {
		err = fmt.Errorf("%w: %v", domain.ErrListen, err)
		docs = nil
	}
	for _, l := range listeners {
		l(docs, err)
	}
}

type registration struct {
	once   sync.Once
	remove func()
}

func (r *registration) Remove() {
	r.once.Do(r.remove)
}
