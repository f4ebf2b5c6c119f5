package domain

import (
	"bytes"
	"context"
	"io"
	"os"
	"time"
)

// LocalImageEntity is a row of the local image index. It exclusively owns the
// lifecycle of the file at LocalPath once inserted.
type LocalImageEntity struct {
	LocalPath string // Filesystem location, primary key
	RecordID  string // Optional back-reference to a DestinationRecord
	CreatedAt time.Time
}

// LocalIndex is the on-device cache of local image rows.
type LocalIndex interface {
	Insert(ctx context.Context, entity *LocalImageEntity) error
	// Delete removes the row and its backing file together.
	Delete(ctx context.Context, entity *LocalImageEntity) error
	Get(ctx context.Context, localPath string) (*LocalImageEntity, error)
	List(ctx context.Context) ([]LocalImageEntity, error)
	// Watch emits the current rows and then the full set after every change
	// until ctx is done. Intermediate sets may be coalesced. The watcher is
	// held until ctx is cancelled, so callers must pass a cancellable ctx.
	Watch(ctx context.Context) <-chan []LocalImageEntity
}

// LocalImageStore persists images to durable local paths.
type LocalImageStore interface {
	// Save writes r to a new file named with ext, e.g. ".png".
	Save(ctx context.Context, r io.Reader, ext string) (string, error)
	Open(path string) (io.ReadCloser, error)
	Remove(path string) error
	// Contains reports whether path lives inside the store.
	Contains(path string) bool
}

// BlobStore is remote content storage keyed by string that hands out
// retrievable URLs. Key uniqueness is the caller's responsibility.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	ResolveURL(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// BlobReader is implemented by blob stores that can serve their own content.
type BlobReader interface {
	Get(ctx context.Context, key string) ([]byte, string, error)
}

// ImageHandle is a picked or captured image that can be resolved to bytes.
type ImageHandle interface {
	Open() (io.ReadCloser, error)
}

// BytesImage is an in-memory image, typically from a multipart upload.
type BytesImage []byte

func (b BytesImage) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b)), nil
}

// FileImage is an image already on disk, such as a camera capture.
type FileImage string

func (f FileImage) Open() (io.ReadCloser, error) {
	return os.Open(string(f))
}
