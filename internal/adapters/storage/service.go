// Package storage is the object storage gateway for ad images. It validates
// uploads, derives collision-free keys, and issues presigned read URLs against
// an S3-compatible bucket. Callers only ever hold object keys.
package storage

import (
	"context"
	"io"
	"time"
)

// Upload is one file handed to the gateway.
type Upload struct {
	// Filename is the client-supplied name; only its extension is kept.
	Filename string
	// ContentType is the declared MIME type.
	ContentType string
	// Size is the payload length in bytes.
	Size int64
	// Body streams the payload.
	Body io.Reader
}

// ObjectStorage is the capability set offered to the rest of the application.
type ObjectStorage interface {
	// EnsureBucketExists checks for the bucket and creates it when absent.
	EnsureBucketExists(ctx context.Context) error

	// Upload validates the file, stores it under a fresh key, and returns the key.
	Upload(ctx context.Context, file Upload) (string, error)

	// UploadBatch uploads files in order and returns keys in the same order.
	// The first failure aborts the batch and no keys are returned.
	UploadBatch(ctx context.Context, files []Upload) ([]string, error)

	// Delete removes an object. Blank and already-absent keys are not errors.
	Delete(ctx context.Context, key string) error

	// DeleteBatch deletes keys in order, stopping at the first failure.
	DeleteBatch(ctx context.Context, keys []string) error

	// PresignedGetURL returns a time-limited read URL, or "" for a blank key.
	PresignedGetURL(ctx context.Context, key string) (string, error)

	// PresignedGetURLs maps PresignedGetURL over keys preserving order.
	PresignedGetURLs(ctx context.Context, keys []string) ([]string, error)
}

// Backend is the minimal set of operations the gateway needs from an object store.
type Backend interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string) error
	PutObject(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error
	// RemoveObject returns an error wrapping ErrObjectNotFound when the key is absent.
	RemoveObject(ctx context.Context, bucket, key string) error
	PresignGetObject(ctx context.Context, bucket, key string, expiry time.Duration) (string, error)
}

// Config defines the configuration interface for storage.
type Config interface {
	GetStorageProvider() string
	GetStorageEndpoint() string
	GetStorageExternalEndpoint() string
	GetStorageAccessKey() string
	GetStorageSecretKey() string
	GetStorageBucket() string
	GetStorageUseSSL() bool
	GetStorageRegion() string
	GetStoragePresignedURLDuration() time.Duration
}
