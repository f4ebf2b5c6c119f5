// Package gcs stores destination images in a Cloud Storage bucket, the same
// bucket Firebase Storage serves download URLs from.
package gcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/msomdec/travelupa/internal/domain"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"
)

const (
	downloadTokenKey = "firebaseStorageDownloadTokens"
	downloadHost     = "https://firebasestorage.googleapis.com"
)

// BlobStore implements domain.BlobStore on a Cloud Storage bucket.
type BlobStore struct {
	svc          *storage.Service
	bucket       string
	downloadHost string
}

var _ domain.BlobStore = (*BlobStore)(nil)

// New creates a BlobStore for bucket. Options are passed to the storage client,
// e.g. option.WithCredentialsFile.
func New(ctx context.Context, bucket string, opts ...option.ClientOption) (*BlobStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("%w: bucket is required", domain.ErrInvalidInput)
	}
	svc, err := storage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage service: %w", err)
	}
	return &BlobStore{svc: svc, bucket: bucket, downloadHost: downloadHost}, nil
}

// WithDownloadHost overrides the host used in resolved URLs.
func (s *BlobStore) WithDownloadHost(host string) *BlobStore {
	s.downloadHost = host
	return s
}

// Put uploads data and attaches a download token so the object can be fetched
// through a Firebase-style download URL.
func (s *BlobStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	obj := &storage.Object{
		Name:        key,
		ContentType: contentType,
		Metadata:    map[string]string{downloadTokenKey: uuid.NewString()},
	}
	_, err := s.svc.Objects.Insert(s.bucket, obj).
		Media(bytes.NewReader(data), googleapi.ContentType(contentType)).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("upload object %s: %w", key, err)
	}
	return nil
}

// ResolveURL reads the object's metadata and builds its download URL.
func (s *BlobStore) ResolveURL(ctx context.Context, key string) (string, error) {
	obj, err := s.svc.Objects.Get(s.bucket, key).Context(ctx).Do()
	if err != nil {
		if isNotFound(err) {
			return "", domain.ErrNotFound
		}
		return "", fmt.Errorf("get object %s: %w", key, err)
	}

	u := fmt.Sprintf("%s/v0/b/%s/o/%s?alt=media", s.downloadHost, s.bucket, url.PathEscape(obj.Name))
	if token := obj.Metadata[downloadTokenKey]; token != "" {
		u += "&token=" + url.QueryEscape(token)
	}
	return u, nil
}

func (s *BlobStore) Delete(ctx context.Context, key string) error {
	err := s.svc.Objects.Delete(s.bucket, key).Context(ctx).Do()
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
