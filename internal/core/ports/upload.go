package ports

import (
	"context"
	"io"
)

// AssetStore persists uploaded media and returns the absolute URL it is served from.
type AssetStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
}

// UploadInput is a single file received by the upload relay.
type UploadInput struct {
	OwnerID  string
	Filename string
	Size     int64
	Body     io.Reader
}

// UploadResult describes a stored asset.
type UploadResult struct {
	URL         string
	Key         string
	ContentType string
	Size        int64
}

type UploadService interface {
	Upload(ctx context.Context, in UploadInput) (*UploadResult, error)
}
