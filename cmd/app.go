package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/msomdec/travelupa/internal/config"
	"github.com/msomdec/travelupa/internal/domain"
	"github.com/msomdec/travelupa/internal/handler"
	"github.com/msomdec/travelupa/internal/repository/gcs"
	"github.com/msomdec/travelupa/internal/repository/postgres"
	"github.com/msomdec/travelupa/internal/repository/sqlite"
	"google.golang.org/api/option"
)

// stores holds the opened storage backends shared by every command.
type stores struct {
	db      *sqlite.DB
	catalog domain.CatalogStore
	pingers []handler.Pinger
	closers []func() error
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			slog.Warn("close store", "error", err)
		}
	}
}

// loadConfig reads the environment and installs the logger at the configured level.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	setupLogger(cfg.LogLevel)
	return cfg, nil
}

// openStores opens the SQLite database, applies migrations and connects the
// configured catalog backend.
func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s := &stores{db: db, pingers: []handler.Pinger{db.SqlDB.PingContext}}
	s.closers = append(s.closers, db.Close)

	if err := db.Migrate(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	switch cfg.CatalogBackend {
	case config.CatalogBackendPostgres:
		pg, err := postgres.Open(ctx, cfg.CatalogDatabaseURL, domain.DestinationCollection)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.catalog = pg
		s.pingers = append(s.pingers, pg.Ping)
		s.closers = append(s.closers, pg.Close)
		slog.Info("catalog backend connected", "backend", cfg.CatalogBackend)
	default:
		s.catalog = db.Catalog()
	}
	return s, nil
}

// openBlobs returns the configured blob store. The reader is non-nil when the
// blobs live in this process and must be served over HTTP.
func openBlobs(ctx context.Context, cfg *config.Config, db *sqlite.DB) (domain.BlobStore, domain.BlobReader, error) {
	switch cfg.BlobBackend {
	case config.BlobBackendGCS:
		var opts []option.ClientOption
		if cfg.GCSCredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.GCSCredentialsFile))
		}
		store, err := gcs.New(ctx, cfg.GCSBucket, opts...)
		if err != nil {
			return nil, nil, err
		}
		return store, nil, nil
	case config.BlobBackendSQLite:
		blobs := db.Blobs(cfg.PublicBaseURL)
		return blobs, blobs, nil
	default:
		return nil, nil, errors.New("unknown blob backend " + cfg.BlobBackend)
	}
}
