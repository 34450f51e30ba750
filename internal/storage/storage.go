package storage

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned by direct-to-storage operations when the
// active backend is not S3 or its settings are incomplete. It is raised
// before any network call.
var ErrNotConfigured = errors.New("storage backend not configured")

// ErrObjectNotFound is returned by blob stores for missing keys.
var ErrObjectNotFound = errors.New("object not found")

// CompletedPart is a client-reported multipart upload part.
type CompletedPart struct {
	PartNumber int    `json:"PartNumber"`
	ETag       string `json:"ETag"`
}

// BlobStore reads and writes whole objects. Pipeline jobs fetch source
// images and store thumbnails through it.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte, contentType string) error
}
