package sqlite_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/msomdec/travelupa/internal/domain"
)

type recordingListener struct {
	mu        sync.Mutex
	snapshots [][]domain.CatalogDocument
	errs      []error
}

func (l *recordingListener) listen(docs []domain.CatalogDocument, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		l.errs = append(l.errs, err)
		return
	}
	l.snapshots = append(l.snapshots, docs)
}

func (l *recordingListener) all() [][]domain.CatalogDocument {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([][]domain.CatalogDocument(nil), l.snapshots...)
}

func TestCatalogStore_UpsertAndList(t *testing.T) {
	db := newTestDB(t)
	store := db.Catalog()
	ctx := context.Background()

	id := store.NewID()
	if err := store.Upsert(ctx, id, map[string]string{"name": "Bromo", "description": "Volcano"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	docs, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	if docs[0].ID != id || docs[0].Fields["name"] != "Bromo" {
		t.Fatalf("unexpected document %+v", docs[0])
	}

	// Upsert on the same id replaces the fields in place.
	if err := store.Upsert(ctx, id, map[string]string{"name": "Gunung Bromo", "description": "Volcano"}); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}
	docs, _ = store.List(ctx)
	if len(docs) != 1 || docs[0].Fields["name"] != "Gunung Bromo" {
		t.Fatalf("expected replaced document, got %+v", docs)
	}
}

func TestCatalogStore_NewIDUnique(t *testing.T) {
	db := newTestDB(t)
	store := db.Catalog()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := store.NewID()
		if id == "" || seen[id] {
			t.Fatalf("id %q empty or reused", id)
		}
		seen[id] = true
	}
}

func TestCatalogStore_Delete(t *testing.T) {
	db := newTestDB(t)
	store := db.Catalog()
	ctx := context.Background()

	id := store.NewID()
	if err := store.Upsert(ctx, id, map[string]string{"name": "Ijen", "description": "Blue fire"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := store.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := store.Delete(ctx, id); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}

	docs, _ := store.List(ctx)
	if len(docs) != 0 {
		t.Fatalf("expected empty catalog, got %d documents", len(docs))
	}
}

func TestCatalogStore_Listen(t *testing.T) {
	db := newTestDB(t)
	store := db.Catalog()
	ctx := context.Background()

	var l recordingListener
	reg, err := store.Listen(l.listen)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	defer reg.Remove()

	// Initial snapshot of the empty catalog.
	snaps := l.all()
	if len(snaps) != 1 || len(snaps[0]) != 0 {
		t.Fatalf("expected one empty initial snapshot, got %v", snaps)
	}

	id := store.NewID()
	if err := store.Upsert(ctx, id, map[string]string{"name": "Bromo", "description": "Volcano"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := store.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	snaps = l.all()
	if len(snaps) != 3 {
		t.Fatalf("expected 3 snapshots, got %d", len(snaps))
	}
	if len(snaps[1]) != 1 || snaps[1][0].ID != id {
		t.Fatalf("expected snapshot with the new document, got %v", snaps[1])
	}
	if len(snaps[2]) != 0 {
		t.Fatalf("expected empty snapshot after delete, got %v", snaps[2])
	}
}

func TestCatalogStore_RemoveStopsDelivery(t *testing.T) {
	db := newTestDB(t)
	store := db.Catalog()
	ctx := context.Background()

	var l recordingListener
	reg, err := store.Listen(l.listen)
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	reg.Remove()
	reg.Remove()

	if err := store.Upsert(ctx, store.NewID(), map[string]string{"name": "x", "description": "y"}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if got := len(l.all()); got != 1 {
		t.Fatalf("expected only the initial snapshot, got %d", got)
	}
}

func TestCatalogStore_ListenNil(t *testing.T) {
	db := newTestDB(t)
	if _, err := db.Catalog().Listen(nil); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
