package domain

import (
	"context"
	"fmt"
	"strings"
)

// DestinationCollection is the catalog collection holding destination records.
const DestinationCollection = "destinations"

// DestinationRecord is a tourist destination as stored in the remote catalog.
type DestinationRecord struct {
	ID            string // Assigned by the CatalogStore, never reassigned
	Name          string
	Description   string
	ImageURL      string // Remote image, set once the upload completes
	ImageResource string // Bundled asset used when no remote image exists
}

// Validate checks the record invariants: name and description are present and
// at most one image source is set.
func (d *DestinationRecord) Validate() error {
	if strings.TrimSpace(d.Name) == "" || strings.TrimSpace(d.Description) == "" {
		return fmt.Errorf("%w: name and description are required", ErrInvalidInput)
	}
	if d.ImageURL != "" && d.ImageResource != "" {
		return fmt.Errorf("%w: record cannot carry both an image url and an image resource", ErrInvalidInput)
	}
	return nil
}

// Fields flattens the record into the catalog document representation.
// The ID is the document key and is not part of the field map.
func (d *DestinationRecord) Fields() map[string]string {
	fields := map[string]string{
		"name":        d.Name,
		"description": d.Description,
	}
	if d.ImageURL != "" {
		fields["imageUrl"] = d.ImageURL
	}
	if d.ImageResource != "" {
		fields["imageResource"] = d.ImageResource
	}
	return fields
}

// DecodeDestination unpacks a catalog document and attaches its id.
func DecodeDestination(doc CatalogDocument) (DestinationRecord, error) {
	if doc.ID == "" {
		return DestinationRecord{}, fmt.Errorf("%w: document without id", ErrInvalidInput)
	}
	rec := DestinationRecord{
		ID:            doc.ID,
		Name:          doc.Fields["name"],
		Description:   doc.Fields["description"],
		ImageURL:      doc.Fields["imageUrl"],
		ImageResource: doc.Fields["imageResource"],
	}
	if rec.ImageURL != "" && rec.ImageResource != "" {
		return DestinationRecord{}, fmt.Errorf("%w: document %s has two image sources", ErrInvalidInput, doc.ID)
	}
	return rec, nil
}

// CatalogDocument is one document of the catalog: an opaque id and a flat field map.
type CatalogDocument struct {
	ID     string
	Fields map[string]string
}

// CatalogListener receives the full catalog after every change. Exactly one of
// docs or err is meaningful. Listeners run on the store's notifying goroutine
// and must return promptly.
type CatalogListener func(docs []CatalogDocument, err error)

// ListenerRegistration releases a catalog listener. Remove is idempotent.
type ListenerRegistration interface {
	Remove()
}

// CatalogStore is a document store keyed by opaque ids with live-subscription reads.
type CatalogStore interface {
	// NewID returns a fresh document id. Ids are never reused.
	NewID() string
	Upsert(ctx context.Context, id string, fields map[string]string) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]CatalogDocument, error)
	// Listen registers a listener that receives the current catalog immediately
	// and again after every creation, update or deletion.
	Listen(listener CatalogListener) (ListenerRegistration, error)
}
