// Package localfs keeps picked and captured images on the local filesystem.
package localfs

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/msomdec/travelupa/internal/domain"
)

const defaultExt = ".jpg"

// Store implements domain.LocalImageStore inside a single directory.
type Store struct {
	dir string
}

var _ domain.LocalImageStore = (*Store)(nil)

// New creates the directory if needed and returns a Store rooted at it.
func New(dir string) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve image directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create image directory: %w", err)
	}
	return &Store{dir: abs}, nil
}

// Dir returns the absolute directory the store writes to.
func (s *Store) Dir() string {
	return s.dir
}

// Save copies r into a new file with extension ext and returns its absolute
// path. An empty ext means ".jpg". The bytes are written to a temporary file
// that is renamed into place only after a successful sync, so a failed save
// never leaves a partial image behind.
func (s *Store) Save(ctx context.Context, r io.Reader, ext string) (string, error) {
	if ext == "" {
		ext = defaultExt
	}
	if !validExt(ext) {
		return "", fmt.Errorf("%w: bad file extension %q", domain.ErrInvalidInput, ext)
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrIO, err)
	}

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("%w: create temp file: %v", domain.ErrIO, err)
	}
	tmpName := tmp.Name()

	fail := func(step string, err error) (string, error) {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("%w: %s: %v", domain.ErrIO, step, err)
	}

	if _, err := io.Copy(tmp, contextReader{ctx: ctx, r: r}); err != nil {
		return fail("copy image", err)
	}
	if err := tmp.Sync(); err != nil {
		return fail("sync image", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("%w: close image: %v", domain.ErrIO, err)
	}

	name := fmt.Sprintf("image_%d_%s%s", time.Now().UnixMilli(), uuid.NewString()[:8], ext)
	path := filepath.Join(s.dir, name)
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("%w: rename image: %v", domain.ErrIO, err)
	}
	return path, nil
}

// Open returns a reader for a stored image.
func (s *Store) Open(path string) (io.ReadCloser, error) {
	if !s.Contains(path) {
		return nil, domain.ErrNotFound
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: open image: %v", domain.ErrIO, err)
	}
	return f, nil
}

// Remove deletes a stored image. Removing a missing file is not an error.
func (s *Store) Remove(path string) error {
	if !s.Contains(path) {
		return fmt.Errorf("%w: %s is outside the image directory", domain.ErrInvalidInput, path)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: remove image: %v", domain.ErrIO, err)
	}
	return nil
}

// Contains reports whether path names a file directly inside the store directory.
func (s *Store) Contains(path string) bool {
	if !filepath.IsAbs(path) {
		return false
	}
	clean := filepath.Clean(path)
	return filepath.Dir(clean) == s.dir && !strings.HasPrefix(filepath.Base(clean), ".")
}

// PathFor maps a bare file name back to its location in the store.
func (s *Store) PathFor(name string) (string, bool) {
	if name == "" || name != filepath.Base(name) {
		return "", false
	}
	path := filepath.Join(s.dir, name)
	return path, s.Contains(path)
}

// validExt accepts a dot followed by up to eight ASCII letters or digits.
func validExt(ext string) bool {
	if len(ext) < 2 || len(ext) > 9 || ext[0] != '.' {
		return false
	}
	for _, c := range ext[1:] {
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}

// contextReader stops a copy once ctx is cancelled.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
