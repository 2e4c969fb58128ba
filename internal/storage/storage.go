package storage

import (
	"context"
	"io"
)

// UploadOptions conveys upload destination metadata.
type UploadOptions struct {
	Filename    string
	ContentType string
}

// UploadResult identifies the stored object.
type UploadResult struct {
	Key string
	URL string
}

// Uploader stores blobs (comment photos) in remote object storage.
// Failures are reported as domain.ErrUpload.
type Uploader interface {
	Upload(ctx context.Context, body io.Reader, opts UploadOptions) (*UploadResult, error)
}
