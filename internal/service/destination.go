package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/msomdec/travelupa/internal/domain"
)

// DestinationService reads and manages destination records in the catalog.
type DestinationService struct {
	catalog domain.CatalogStore
	index   domain.LocalIndex
}

// NewDestinationService creates a new DestinationService.
func NewDestinationService(catalog domain.CatalogStore, index domain.LocalIndex) *DestinationService {
	return &DestinationService{catalog: catalog, index: index}
}

// List returns every decodable destination in store order.
func (s *DestinationService) List(ctx context.Context) ([]domain.DestinationRecord, error) {
	docs, err := s.catalog.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	records := make([]domain.DestinationRecord, 0, len(docs))
	for _, doc := range docs {
		rec, err := domain.DecodeDestination(doc)
		if err != nil {
			slog.Warn("skipping undecodable catalog document", "id", doc.ID, "error", err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Delete removes the record and the local images cached for it.
func (s *DestinationService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: id is required", domain.ErrInvalidInput)
	}
	if err := s.catalog.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete destination: %w", err)
	}

	entities, err := s.index.List(ctx)
	if err != nil {
		slog.Warn("failed to list local images after delete", "id", id, "error", err)
		return nil
	}
	for i := range entities {
		if entities[i].RecordID != id {
			continue
		}
		if err := s.index.Delete(ctx, &entities[i]); err != nil {
			slog.Warn("failed to remove cached image", "id", id, "path", entities[i].LocalPath, "error", err)
		}
	}
	return nil
}

// Seed publishes records into an empty catalog and reports how many were written.
// A catalog that already holds documents is left untouched.
func (s *DestinationService) Seed(ctx context.Context, records []domain.DestinationRecord) (int, error) {
	existing, err := s.catalog.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list catalog: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	for i := range records {
		if err := records[i].Validate(); err != nil {
			return 0, fmt.Errorf("seed record %d: %w", i, err)
		}
	}

	written := 0
	for i := range records {
		rec := records[i]
		rec.ID = s.catalog.NewID()
		if err := s.catalog.Upsert(ctx, rec.ID, rec.Fields()); err != nil {
			return written, fmt.Errorf("%w: seed %s: %w", domain.ErrCatalogWriteFailed, rec.Name, err)
		}
		written++
	}
	return written, nil
}
