package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/msomdec/travelupa/internal/domain"
)

// BlobStore implements domain.BlobStore with SQLite BLOBs. Resolved URLs point
// at the server's /blobs/ route, which serves the bytes back through Get.
type BlobStore struct {
	db      *sql.DB
	baseURL string
}

var (
	_ domain.BlobStore  = (*BlobStore)(nil)
	_ domain.BlobReader = (*BlobStore)(nil)
)

// NewBlobStore creates a blob store whose URLs are rooted at baseURL.
func NewBlobStore(db *sql.DB, baseURL string) *BlobStore {
	return &BlobStore{db: db, baseURL: strings.TrimRight(baseURL, "/")}
}

func (s *BlobStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return fmt.Errorf("%w: empty blob key", domain.ErrInvalidInput)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO blobs (storage_key, content_type, size, data) VALUES (?, ?, ?, ?)
		 ON CONFLICT(storage_key) DO UPDATE SET
			content_type = excluded.content_type,
			size = excluded.size,
			data = excluded.data`,
		key, contentType, len(data), data,
	)
	if err != nil {
		return fmt.Errorf("save blob: %w", err)
	}
	return nil
}

// ResolveURL returns the public URL of an existing blob.
func (s *BlobStore) ResolveURL(ctx context.Context, key string) (string, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM blobs WHERE storage_key = ?", key,
	).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("resolve blob: %w", err)
	}
	return s.baseURL + "/blobs/" + escapeKey(key), nil
}

func (s *BlobStore) Get(ctx context.Context, key string) ([]byte, string, error) {
	var (
		data        []byte
		contentType string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT data, content_type FROM blobs WHERE storage_key = ?", key,
	).Scan(&data, &contentType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", domain.ErrNotFound
		}
		return nil, "", fmt.Errorf("get blob: %w", err)
	}
	return data, contentType, nil
}

func (s *BlobStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM blobs WHERE storage_key = ?", key)
	if err != nil {
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

// escapeKey escapes each path segment while keeping the namespace slashes.
func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
