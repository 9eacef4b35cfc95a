package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// Default expiry duration for presigned URLs
const DefaultPresignedURLExpiry = 15 * time.Minute

var ErrObjectNotFound = errors.New("object not found in storage")

// FileStorage is the object store that receives backup archives.
type FileStorage interface {
	// PutObject uploads body under objectKey, replacing any previous object.
	PutObject(ctx context.Context, objectKey string, contentType string, body io.Reader) error

	// GetObject opens the object for reading. The caller closes it.
	GetObject(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// GeneratePresignedDownloadURL creates a temporary URL that allows GET requests
	// for downloading an object directly from the storage provider.
	GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error)
}
