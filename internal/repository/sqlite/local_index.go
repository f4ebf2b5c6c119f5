package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/msomdec/travelupa/internal/domain"
)

// LocalIndex implements domain.LocalIndex. Rows and their files are removed
// together: the row delete and the file removal share one transaction, so a
// failed removal leaves the row in place.
type LocalIndex struct {
	db    *sql.DB
	files domain.LocalImageStore

	mu       sync.Mutex
	watchers map[chan []domain.LocalImageEntity]struct{}
}

var _ domain.LocalIndex = (*LocalIndex)(nil)

// NewLocalIndex creates a LocalIndex that removes files through files.
func NewLocalIndex(db *sql.DB, files domain.LocalImageStore) *LocalIndex {
	return &LocalIndex{
		db:       db,
		files:    files,
		watchers: make(map[chan []domain.LocalImageEntity]struct{}),
	}
}

func (r *LocalIndex) Insert(ctx context.Context, entity *domain.LocalImageEntity) error {
	if entity == nil || entity.LocalPath == "" {
		return fmt.Errorf("%w: local path is required", domain.ErrInvalidInput)
	}

	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO local_images (local_path, record_id, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(local_path) DO UPDATE SET record_id = excluded.record_id`,
		entity.LocalPath, nullString(entity.RecordID), now,
	)
	if err != nil {
		return fmt.Errorf("insert local image: %w", err)
	}
	entity.CreatedAt = now

	r.broadcast()
	return nil
}

func (r *LocalIndex) Delete(ctx context.Context, entity *domain.LocalImageEntity) error {
	if entity == nil || entity.LocalPath == "" {
		return fmt.Errorf("%w: local path is required", domain.ErrInvalidInput)
	}

	err := runInTx(ctx, r.db, func(ctx context.Context) error {
		result, err := executorFrom(ctx, r.db).ExecContext(ctx,
			"DELETE FROM local_images WHERE local_path = ?", entity.LocalPath,
		)
		if err != nil {
			return fmt.Errorf("delete local image: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if rows == 0 {
			return domain.ErrNotFound
		}

		// The file goes inside the transaction; if it cannot be removed the row stays.
		// A commit failing after the removal leaves a row without a file, which a
		// later Delete clears because removing a missing file succeeds.
		if err := r.files.Remove(entity.LocalPath); err != nil {
			return fmt.Errorf("remove image file: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.broadcast()
	return nil
}

func (r *LocalIndex) Get(ctx context.Context, localPath string) (*domain.LocalImageEntity, error) {
	var (
		e        domain.LocalImageEntity
		recordID sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT local_path, record_id, created_at FROM local_images WHERE local_path = ?", localPath,
	).Scan(&e.LocalPath, &recordID, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get local image: %w", err)
	}
	e.RecordID = recordID.String
	return &e, nil
}

// List returns all rows, newest first.
func (r *LocalIndex) List(ctx context.Context) ([]domain.LocalImageEntity, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT local_path, record_id, created_at FROM local_images ORDER BY created_at DESC, local_path",
	)
	if err != nil {
		return nil, fmt.Errorf("list local images: %w", err)
	}
	defer rows.Close()

	entities := []domain.LocalImageEntity{}
	for rows.Next() {
		var (
			e        domain.LocalImageEntity
			recordID sql.NullString
		)
		if err := rows.Scan(&e.LocalPath, &recordID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan local image: %w", err)
		}
		e.RecordID = recordID.String
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

// Watch emits the current rows and the full set after every insert or delete.
// The channel holds only the latest set; it is closed once ctx is done. The
// watcher is registered until then, so ctx must be cancellable.
func (r *LocalIndex) Watch(ctx context.Context) <-chan []domain.LocalImageEntity {
	ch := make(chan []domain.LocalImageEntity, 1)

	r.mu.Lock()
	r.watchers[ch] = struct{}{}
	r.mu.Unlock()

	r.send(ch)

	go func() {
		<-ctx.Done()
		r.mu.Lock()
		delete(r.watchers, ch)
		close(ch)
		r.mu.Unlock()
	}()
	return ch
}

func (r *LocalIndex) broadcast() {
	r.mu.Lock()
	watchers := make([]chan []domain.LocalImageEntity, 0, len(r.watchers))
	for ch := range r.watchers {
		watchers = append(watchers, ch)
	}
	r.mu.Unlock()

	for _, ch := range watchers {
		r.send(ch)
	}
}

// send replaces whatever set is still buffered in ch with the current one.
func (r *LocalIndex) send(ch chan []domain.LocalImageEntity) {
	entities, err := r.List(context.Background())
	if err != nil {
		slog.Warn("local index watch query failed", "error", err)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.watchers[ch]; !ok {
		return
	}
	select {
	case <-ch:
	default:
	}
	ch <- entities
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
