package storage

import (
	"context"
	"fmt"

	"linkedout/domain"
)

// Config selects and parameterizes a blob store backend.
type Config struct {
	Type string `json:"type"` // "filesystem" or "s3"

	// Filesystem fields (only used when Type == "filesystem")
	Root       string `json:"root"`
	BaseURL    string `json:"base_url"`
	SigningKey string `json:"signing_key"`

	// S3 fields (only used when Type == "s3")
	Bucket          string `json:"bucket"`
	Prefix          string `json:"prefix"`
	Region          string `json:"region"`
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
}

// NewBlobStoreFromConfig creates a BlobStore implementation based on the
// config type.
func NewBlobStoreFromConfig(ctx context.Context, cfg Config) (domain.BlobStore, error) {
	switch cfg.Type {
	case "filesystem":
		if cfg.Root == "" {
			return nil, fmt.Errorf("filesystem blob store requires root to be set")
		}
		return NewFileStore(cfg.Root, cfg.BaseURL, cfg.SigningKey)
	case "s3":
		if cfg.Bucket == "" {
			return nil, fmt.Errorf("s3 blob store requires bucket to be set")
		}
		return NewS3Store(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown blob store type: %s", cfg.Type)
	}
}
