package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/msomdec/travelupa/internal/domain"
	"github.com/msomdec/travelupa/internal/repository/sqlite/migrations"
	_ "modernc.org/sqlite"
)

// DB wraps the SQLite connection and hands out the repositories built on it.
type DB struct {
	SqlDB *sql.DB

	catalog *CatalogStore
}

// New opens a SQLite database at the given path and configures it for use.
// It enables WAL mode and foreign keys.
func New(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(context.Background(), pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma %q: %w", pragma, err)
		}
	}

	// A single connection serializes writers and keeps pragmas in effect.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{
		SqlDB:   db,
		catalog: NewCatalogStore(db, domain.DestinationCollection),
	}, nil
}

// Migrate applies the embedded schema migrations.
func (d *DB) Migrate(ctx context.Context) error {
	return migrations.Run(ctx, d.SqlDB)
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	return d.SqlDB.Close()
}

// Users returns the user repository.
func (d *DB) Users() *UserRepository {
	return NewUserRepository(d)
}

// Catalog returns the destination catalog. The same store is returned on every
// call so listeners observe writes made through any caller.
func (d *DB) Catalog() *CatalogStore {
	return d.catalog
}

// Blobs returns a blob store whose URLs are rooted at baseURL.
func (d *DB) Blobs(baseURL string) *BlobStore {
	return NewBlobStore(d.SqlDB, baseURL)
}

// LocalImages returns the local image index. Deleting a row removes its file
// through files.
func (d *DB) LocalImages(files domain.LocalImageStore) *LocalIndex {
	return NewLocalIndex(d.SqlDB, files)
}
