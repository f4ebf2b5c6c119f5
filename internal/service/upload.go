package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/msomdec/travelupa/internal/domain"
)

const (
	maxImageSize   = 10 * 1024 * 1024 // 10MB
	blobKeyPrefix  = "images/"
	defaultTimeout = 60 * time.Second
	indexAttempts  = 2
)

// Outcome is the terminal result of a submission: exactly one of Record or Err is set.
type Outcome struct {
	Record *domain.DestinationRecord
	Err    error
}

// UploadPipeline uploads a destination image, publishes the destination record to
// the catalog and caches the image locally.
type UploadPipeline struct {
	blobs   domain.BlobStore
	catalog domain.CatalogStore
	files   domain.LocalImageStore
	index   domain.LocalIndex

	timeout       time.Duration
	orphanCleanup bool
}

// PipelineOption configures an UploadPipeline.
type PipelineOption func(*UploadPipeline)

// WithOrphanCleanup deletes the uploaded blob when the record never reaches the catalog.
func WithOrphanCleanup(enabled bool) PipelineOption {
	return func(p *UploadPipeline) { p.orphanCleanup = enabled }
}

// WithTimeout bounds each network leg. Zero or negative disables the bound.
func WithTimeout(d time.Duration) PipelineOption {
	return func(p *UploadPipeline) { p.timeout = d }
}

// NewUploadPipeline creates a new UploadPipeline.
func NewUploadPipeline(blobs domain.BlobStore, catalog domain.CatalogStore, files domain.LocalImageStore, index domain.LocalIndex, opts ...PipelineOption) *UploadPipeline {
	p := &UploadPipeline{
		blobs:   blobs,
		catalog: catalog,
		files:   files,
		index:   index,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Submit runs the whole pipeline and returns the published record. Invalid input
// is rejected before any collaborator is called. Every call uses a fresh blob key
// and catalog id, so retrying a failed Submit never updates a previous attempt.
func (p *UploadPipeline) Submit(ctx context.Context, img domain.ImageHandle, name, description string) (*domain.DestinationRecord, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(description) == "" {
		return nil, fmt.Errorf("%w: name and description are required", domain.ErrInvalidInput)
	}

	data, contentType, err := readImage(img)
	if err != nil {
		return nil, err
	}

	key := blobKeyPrefix + uuid.NewString() + extensionFor(contentType)

	// The local copy has no data dependency on the upload, so both legs run together.
	var (
		localPath string
		copyErr   error
		wg        sync.WaitGroup
	)
	wg.Go(func() {
		localPath, copyErr = p.files.Save(ctx, bytes.NewReader(data), extensionFor(contentType))
	})
	imageURL, uploadErr := p.upload(ctx, key, data, contentType)
	wg.Wait()

	if uploadErr != nil {
		if copyErr == nil {
			p.discardLocal(localPath)
		}
		return nil, uploadErr
	}
	if copyErr != nil {
		p.discardBlob(ctx, key)
		return nil, fmt.Errorf("copy image locally: %w", copyErr)
	}

	record := &domain.DestinationRecord{
		ID:          p.catalog.NewID(),
		Name:        name,
		Description: description,
		ImageURL:    imageURL,
	}
	if err := p.publish(ctx, record); err != nil {
		p.discardLocal(localPath)
		p.discardBlob(ctx, key)
		return nil, err
	}

	p.cacheLocal(ctx, localPath, record.ID)

	slog.Info("destination published", "id", record.ID, "name", record.Name, "key", key)
	return record, nil
}

// SubmitAsync runs Submit on its own goroutine and calls done exactly once with the outcome.
func (p *UploadPipeline) SubmitAsync(ctx context.Context, img domain.ImageHandle, name, description string, done func(Outcome)) {
	go func() {
		record, err := p.Submit(ctx, img, name, description)
		if done != nil {
			done(Outcome{Record: record, Err: err})
		}
	}()
}

func (p *UploadPipeline) upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	if err := p.blobs.Put(ctx, key, data, contentType); err != nil {
		return "", fmt.Errorf("%w: put %s: %w", domain.ErrUploadFailed, key, err)
	}
	u, err := p.blobs.ResolveURL(ctx, key)
	if err != nil {
		return "", fmt.Errorf("%w: resolve %s: %w", domain.ErrUploadFailed, key, err)
	}
	if u == "" {
		return "", fmt.Errorf("%w: empty url for %s", domain.ErrUploadFailed, key)
	}
	return u, nil
}

func (p *UploadPipeline) publish(ctx context.Context, record *domain.DestinationRecord) error {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	if err := p.catalog.Upsert(ctx, record.ID, record.Fields()); err != nil {
		return fmt.Errorf("%w: upsert %s: %w", domain.ErrCatalogWriteFailed, record.ID, err)
	}
	return nil
}

// cacheLocal links the local copy to the published record. The record is already
// visible, so failures are logged and the copy is dropped instead of failing the call.
func (p *UploadPipeline) cacheLocal(ctx context.Context, localPath, recordID string) {
	ctx = context.WithoutCancel(ctx)
	entity := &domain.LocalImageEntity{
		LocalPath: localPath,
		RecordID:  recordID,
		CreatedAt: time.Now().UTC(),
	}

	var err error
	for range indexAttempts {
		if err = p.index.Insert(ctx, entity); err == nil {
			return
		}
	}
	slog.Warn("local index write failed", "id", recordID, "path", localPath, "error", err)
	p.discardLocal(localPath)
}

func (p *UploadPipeline) discardLocal(path string) {
	if err := p.files.Remove(path); err != nil {
		slog.Warn("failed to remove local image", "path", path, "error", err)
	}
}

func (p *UploadPipeline) discardBlob(ctx context.Context, key string) {
	if !p.orphanCleanup {
		return
	}
	ctx, cancel := p.withTimeout(context.WithoutCancel(ctx))
	defer cancel()
	if err := p.blobs.Delete(ctx, key); err != nil {
		slog.Warn("failed to delete orphaned blob", "key", key, "error", err)
	}
}

func (p *UploadPipeline) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.timeout)
}

// readImage resolves the handle to bytes and checks the accepted formats.
func readImage(img domain.ImageHandle) ([]byte, string, error) {
	if img == nil {
		return nil, "", fmt.Errorf("%w: image is required", domain.ErrInvalidInput)
	}
	rc, err := img.Open()
	if err != nil {
		return nil, "", fmt.Errorf("%w: image cannot be read: %v", domain.ErrInvalidInput, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxImageSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("%w: image cannot be read: %v", domain.ErrInvalidInput, err)
	}
	return checkImage(data)
}

func checkImage(data []byte) ([]byte, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: image is empty", domain.ErrInvalidInput)
	}
	if len(data) > maxImageSize {
		return nil, "", fmt.Errorf("%w: image exceeds 10MB limit", domain.ErrInvalidInput)
	}
	contentType := http.DetectContentType(data)
	if contentType != "image/jpeg" && contentType != "image/png" {
		return nil, "", fmt.Errorf("%w: only JPEG and PNG images are accepted", domain.ErrInvalidInput)
	}
	return data, contentType, nil
}

func extensionFor(contentType string) string {
	if contentType == "image/png" {
		return ".png"
	}
	return ".jpg"
}
