package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/disintegration/imaging"
	"github.com/msomdec/travelupa/internal/domain"
)

const (
	captureQuality   = 100
	thumbnailQuality = 85
	maxThumbnailSize = 1024
)

// GalleryFiles is a local image store that can map file names back to paths.
type GalleryFiles interface {
	domain.LocalImageStore
	PathFor(name string) (string, bool)
}

// GalleryService manages the locally cached images.
type GalleryService struct {
	files GalleryFiles
	index domain.LocalIndex
}

// NewGalleryService creates a new GalleryService.
func NewGalleryService(files GalleryFiles, index domain.LocalIndex) *GalleryService {
	return &GalleryService{files: files, index: index}
}

// List returns every cached image, newest first.
func (s *GalleryService) List(ctx context.Context) ([]domain.LocalImageEntity, error) {
	return s.index.List(ctx)
}

// Watch emits the gallery and then every changed set until ctx is cancelled.
func (s *GalleryService) Watch(ctx context.Context) <-chan []domain.LocalImageEntity {
	return s.index.Watch(ctx)
}

// Add stores a JPEG or PNG image and indexes it without a record reference.
func (s *GalleryService) Add(ctx context.Context, r io.Reader) (*domain.LocalImageEntity, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: image cannot be read: %v", domain.ErrInvalidInput, err)
	}
	_, contentType, err := checkImage(data)
	if err != nil {
		return nil, err
	}
	return s.store(ctx, data, extensionFor(contentType))
}

// Capture normalizes a camera frame to a full-quality JPEG and adds it.
func (s *GalleryService) Capture(ctx context.Context, r io.Reader) (*domain.LocalImageEntity, error) {
	img, err := imaging.Decode(io.LimitReader(r, maxImageSize+1), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: decode capture: %v", domain.ErrInvalidInput, err)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(captureQuality)); err != nil {
		return nil, fmt.Errorf("encode capture: %w", err)
	}
	return s.store(ctx, buf.Bytes(), ".jpg")
}

// Delete removes the named image's row and file together.
func (s *GalleryService) Delete(ctx context.Context, name string) error {
	path, ok := s.files.PathFor(name)
	if !ok {
		return fmt.Errorf("%w: invalid image name", domain.ErrInvalidInput)
	}
	return s.index.Delete(ctx, &domain.LocalImageEntity{LocalPath: path})
}

// Thumbnail returns a JPEG of the named image scaled to fit a size x size box.
func (s *GalleryService) Thumbnail(ctx context.Context, name string, size int) ([]byte, error) {
	if size <= 0 || size > maxThumbnailSize {
		return nil, fmt.Errorf("%w: size must be between 1 and %d", domain.ErrInvalidInput, maxThumbnailSize)
	}
	path, ok := s.files.PathFor(name)
	if !ok {
		return nil, fmt.Errorf("%w: invalid image name", domain.ErrInvalidInput)
	}
	if _, err := s.index.Get(ctx, path); err != nil {
		return nil, err
	}

	rc, err := s.files.Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	img, err := imaging.Decode(rc, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", domain.ErrIO, name, err)
	}
	thumb := imaging.Fit(img, size, size, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(thumbnailQuality)); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *GalleryService) store(ctx context.Context, data []byte, ext string) (*domain.LocalImageEntity, error) {
	path, err := s.files.Save(ctx, bytes.NewReader(data), ext)
	if err != nil {
		return nil, fmt.Errorf("save image: %w", err)
	}

	entity := &domain.LocalImageEntity{LocalPath: path, CreatedAt: time.Now().UTC()}
	if err := s.index.Insert(ctx, entity); err != nil {
		_ = s.files.Remove(path)
		return nil, fmt.Errorf("index image: %w", err)
	}
	return entity, nil
}
