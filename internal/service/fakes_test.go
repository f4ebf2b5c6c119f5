package service_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"slices"
	"strconv"
	"sync"
	"testing"

	"github.com/msomdec/travelupa/internal/domain"
	"github.com/msomdec/travelupa/internal/localfs"
)

func testJPEG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, testPicture(), &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, testPicture()); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func testPicture() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := range 48 {
		for x := range 64 {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 5), B: 120, A: 255})
		}
	}
	return img
}

// fakeBlobs is an in-memory blob store with injectable failures.
type fakeBlobs struct {
	mu         sync.Mutex
	objects    map[string][]byte
	deleted    []string
	calls      int
	putErr     error
	resolveErr error
	block      bool
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: map[string][]byte{}}
}

func (b *fakeBlobs) Put(ctx context.Context, key string, data []byte, _ string) error {
	b.mu.Lock()
	b.calls++
	block, err := b.block, b.putErr
	b.mu.Unlock()

	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.objects[key] = slices.Clone(data)
	b.mu.Unlock()
	return nil
}

func (b *fakeBlobs) ResolveURL(_ context.Context, key string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if b.resolveErr != nil {
		return "", b.resolveErr
	}
	if _, ok := b.objects[key]; !ok {
		return "", domain.ErrNotFound
	}
	return "https://blobs.test/" + key, nil
}

func (b *fakeBlobs) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	delete(b.objects, key)
	b.deleted = append(b.deleted, key)
	return nil
}

func (b *fakeBlobs) keys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	keys := make([]string, 0, len(b.objects))
	for k := range b.objects {
		keys = append(keys, k)
	}
	return keys
}

func (b *fakeBlobs) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

// fakeCatalog is an in-memory catalog that notifies listeners synchronously,
// delivering the current contents on registration.
type fakeCatalog struct {
	mu        sync.Mutex
	order     []string
	docs      map[string]map[string]string
	listeners map[int]domain.CatalogListener
	nextID    int
	nextKey   int
	calls     int
	upsertErr error
	removed   int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		docs:      map[string]map[string]string{},
		listeners: map[int]domain.CatalogListener{},
	}
}

func (c *fakeCatalog) NewID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.nextID++
	return "doc-" + strconv.Itoa(c.nextID)
}

func (c *fakeCatalog) Upsert(_ context.Context, id string, fields map[string]string) error {
	c.mu.Lock()
	c.calls++
	if c.upsertErr != nil {
		c.mu.Unlock()
		return c.upsertErr
	}
	if _, ok := c.docs[id]; !ok {
		c.order = append(c.order, id)
	}
	c.docs[id] = fields
	c.mu.Unlock()
	c.emit(nil)
	return nil
}

func (c *fakeCatalog) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	c.calls++
	if _, ok := c.docs[id]; !ok {
		c.mu.Unlock()
		return domain.ErrNotFound
	}
	delete(c.docs, id)
	c.order = slices.DeleteFunc(c.order, func(s string) bool { return s == id })
	c.mu.Unlock()
	c.emit(nil)
	return nil
}

func (c *fakeCatalog) List(context.Context) ([]domain.CatalogDocument, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.snapshot(), nil
}

func (c *fakeCatalog) Listen(listener domain.CatalogListener) (domain.ListenerRegistration, error) {
	c.mu.Lock()
	key := c.nextKey
	c.nextKey++
	c.listeners[key] = listener
	docs := c.snapshot()
	c.mu.Unlock()

	listener(docs, nil)
	return &fakeRegistration{remove: func() {
		c.mu.Lock()
		delete(c.listeners, key)
		c.removed++
		c.mu.Unlock()
	}}, nil
}

// put stores a raw document, bypassing record validation.
func (c *fakeCatalog) put(id string, fields map[string]string) {
	c.mu.Lock()
	c.order = append(c.order, id)
	c.docs[id] = fields
	c.mu.Unlock()
	c.emit(nil)
}

// emit notifies listeners of the current contents, or of err when set.
func (c *fakeCatalog) emit(err error) {
	c.mu.Lock()
	listeners := make([]domain.CatalogListener, 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	docs := c.snapshot()
	c.mu.Unlock()

	for _, l := range listeners {
		if err != nil {
			l(nil, err)
			continue
		}
		l(docs, nil)
	}
}

func (c *fakeCatalog) snapshot() []domain.CatalogDocument {
	docs := make([]domain.CatalogDocument, 0, len(c.order))
	for _, id := range c.order {
		docs = append(docs, domain.CatalogDocument{ID: id, Fields: c.docs[id]})
	}
	return docs
}

func (c *fakeCatalog) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *fakeCatalog) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.docs)
}

func (c *fakeCatalog) removeCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.removed
}

type fakeRegistration struct {
	once   sync.Once
	remove func()
}

func (r *fakeRegistration) Remove() { r.once.Do(r.remove) }

// countingFiles wraps a real local store and counts every call.
type countingFiles struct {
	*localfs.Store
	mu      sync.Mutex
	calls   int
	saveErr error
}

func newCountingFiles(t *testing.T) *countingFiles {
	t.Helper()
	store, err := localfs.New(t.TempDir())
	if err != nil {
		t.Fatalf("localfs.New: %v", err)
	}
	return &countingFiles{Store: store}
}

func (f *countingFiles) Save(ctx context.Context, r io.Reader, ext string) (string, error) {
	f.mu.Lock()
	f.calls++
	err := f.saveErr
	f.mu.Unlock()
	if err != nil {
		return "", err
	}
	return f.Store.Save(ctx, r, ext)
}

func (f *countingFiles) Remove(path string) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.Store.Remove(path)
}

func (f *countingFiles) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fileCount counts the images currently in the store directory.
func (f *countingFiles) fileCount(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir(f.Dir())
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	return len(entries)
}

// fakeIndex is an in-memory local index whose inserts can be made to fail.
type fakeIndex struct {
	mu          sync.Mutex
	rows        map[string]domain.LocalImageEntity
	calls       int
	inserts     int
	failInserts int // number of leading inserts that fail; negative fails all
	insertErr   error
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{rows: map[string]domain.LocalImageEntity{}}
}

func (x *fakeIndex) Insert(_ context.Context, e *domain.LocalImageEntity) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.calls++
	x.inserts++
	if x.failInserts < 0 || x.inserts <= x.failInserts {
		return x.insertErr
	}
	x.rows[e.LocalPath] = *e
	return nil
}

func (x *fakeIndex) Delete(_ context.Context, e *domain.LocalImageEntity) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.calls++
	if _, ok := x.rows[e.LocalPath]; !ok {
		return domain.ErrNotFound
	}
	delete(x.rows, e.LocalPath)
	return nil
}

func (x *fakeIndex) Get(_ context.Context, path string) (*domain.LocalImageEntity, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.calls++
	e, ok := x.rows[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &e, nil
}

func (x *fakeIndex) List(context.Context) ([]domain.LocalImageEntity, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.calls++
	out := make([]domain.LocalImageEntity, 0, len(x.rows))
	for _, e := range x.rows {
		out = append(out, e)
	}
	return out, nil
}

func (x *fakeIndex) Watch(ctx context.Context) <-chan []domain.LocalImageEntity {
	ch := make(chan []domain.LocalImageEntity)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch
}

func (x *fakeIndex) callCount() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.calls
}

func (x *fakeIndex) insertCount() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.inserts
}

func (x *fakeIndex) size() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.rows)
}
