// Package postgres provides a catalog store whose change feed is pushed by the
// database through LISTEN/NOTIFY, so every server instance sees every write.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/msomdec/travelupa/internal/domain"
)

const (
	notifyChannel = "catalog_changes"
	retryDelay    = 2 * time.Second
)

const schema = `
CREATE TABLE IF NOT EXISTS catalog_documents (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	fields     JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (collection, id)
)`

// CatalogStore implements domain.CatalogStore on PostgreSQL.
type CatalogStore struct {
	pool       *pgxpool.Pool
	collection string
}

var _ domain.CatalogStore = (*CatalogStore)(nil)

// Open connects to connString and ensures the catalog table exists.
func Open(ctx context.Context, connString, collection string) (*CatalogStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect catalog database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping catalog database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure catalog schema: %w", err)
	}
	return &CatalogStore{pool: pool, collection: collection}, nil
}

// Close releases the connection pool.
func (s *CatalogStore) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks that the catalog database is reachable.
func (s *CatalogStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
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

	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO catalog_documents (collection, id, fields) VALUES ($1, $2, $3)
			 ON CONFLICT (collection, id) DO UPDATE SET fields = EXCLUDED.fields, updated_at = now()`,
			s.collection, id, data,
		); err != nil {
			return err
		}
		// The notification is delivered on commit only.
		_, err := tx.Exec(ctx, "SELECT pg_notify($1, $2)", notifyChannel, s.collection)
		return err
	})
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

func (s *CatalogStore) Delete(ctx context.Context, id string) error {
	var deleted int64
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			"DELETE FROM catalog_documents WHERE collection = $1 AND id = $2", s.collection, id,
		)
		if err != nil {
			return err
		}
		deleted = tag.RowsAffected()
		if deleted == 0 {
			return nil
		}
		_, err = tx.Exec(ctx, "SELECT pg_notify($1, $2)", notifyChannel, s.collection)
		return err
	})
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if deleted == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns the collection in creation order.
func (s *CatalogStore) List(ctx context.Context) ([]domain.CatalogDocument, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT id, fields FROM catalog_documents WHERE collection = $1 ORDER BY created_at, id", s.collection,
	)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := []domain.CatalogDocument{}
	for rows.Next() {
		var (
			doc domain.CatalogDocument
			raw []byte
		)
		if err := rows.Scan(&doc.ID, &raw); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		if err := json.Unmarshal(raw, &doc.Fields); err != nil {
			return nil, fmt.Errorf("decode document %s: %w", doc.ID, err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Listen holds a dedicated connection on LISTEN and re-reads the collection for
// every notification. A lost connection is reported to the listener as
// ErrListen and re-established after a short delay.
func (s *CatalogStore) Listen(listener domain.CatalogListener) (domain.ListenerRegistration, error) {
	if listener == nil {
		return nil, fmt.Errorf("%w: nil listener", domain.ErrInvalidInput)
	}

	ctx, cancel := context.WithCancel(context.Background())
	conn, err := s.listenConn(ctx)
	if err != nil {
		cancel()
		return nil, err
	}

	reg := &registration{cancel: cancel, done: make(chan struct{})}
	s.deliver(ctx, listener)

	go func() {
		defer close(reg.done)
		for {
			err := s.wait(ctx, conn, listener)
			conn.Release()
			if ctx.Err() != nil {
				return
			}
			listener(nil, fmt.Errorf("%w: %v", domain.ErrListen, err))

			for {
				select {
				case <-ctx.Done():
					return
				case <-time.After(retryDelay):
				}
				conn, err = s.listenConn(ctx)
				if err == nil {
					break
				}
				slog.Warn("catalog listen reconnect failed", "error", err)
			}
			// Writes may have happened while disconnected.
			s.deliver(ctx, listener)
		}
	}()

	return reg, nil
}

func (s *CatalogStore) listenConn(ctx context.Context) (*pgxpool.Conn, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire listen connection: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		conn.Release()
		return nil, fmt.Errorf("listen: %w", err)
	}
	return conn, nil
}

func (s *CatalogStore) wait(ctx context.Context, conn *pgxpool.Conn, listener domain.CatalogListener) error {
	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		if n.Payload != s.collection {
			continue
		}
		s.deliver(ctx, listener)
	}
}

func (s *CatalogStore) deliver(ctx context.Context, listener domain.CatalogListener) {
	docs, err := s.List(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		listener(nil, fmt.Errorf("%w: %v", domain.ErrListen, err))
		return
	}
	listener(docs, nil)
}

type registration struct {
	once   sync.Once
	cancel context.CancelFunc
	done   chan struct{}
}

// Remove stops the listen loop and waits for it to release its connection.
func (r *registration) Remove() {
	r.once.Do(func() {
		r.cancel()
		<-r.done
	})
}
