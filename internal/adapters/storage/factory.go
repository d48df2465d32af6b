package storage

import (
	"fmt"
	"strings"
)

// Supported values for the storage provider setting.
const (
	ProviderMinIO = "minio"
	ProviderS3    = "s3"
)

// NewBackend binds the backend named by the configured provider.
func NewBackend(cfg Config) (Backend, error) {
	switch strings.ToLower(cfg.GetStorageProvider()) {
	case ProviderMinIO, "":
		return NewMinIOBackend(cfg)
	case ProviderS3:
		return NewS3Backend(cfg)
	default:
		return nil, fmt.Errorf("unsupported storage provider %q", cfg.GetStorageProvider())
	}
}
