package domain

import (
	"context"
	"io"
	"time"
)

const (
	// MaxUploadSize caps uploaded image files.
	MaxUploadSize int64 = 5 << 20 // 5 Megabyte
	// RetrievalURLTTL is how long a retrieval URL stays valid. Only the
	// blob name is ever persisted; callers request a fresh URL per render.
	RetrievalURLTTL = 30 * time.Minute
)

// BlobStore stores uploaded image bytes under caller-generated unique names
// and hands out short-lived retrieval URLs for them. Implementations live in
// the storage package.
type BlobStore interface {
	Put(ctx context.Context, name string, contentType string, r io.Reader) error
	// RetrievalURL returns a time-boxed URL granting read access to the
	// named blob without further authentication.
	RetrievalURL(ctx context.Context, name string) (string, error)
	Delete(ctx context.Context, name string) error
}
