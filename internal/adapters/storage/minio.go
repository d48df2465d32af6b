package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOBackend implements Backend using MinIO.
type MinIOBackend struct {
	client *minio.Client
	region string
}

// NewMinIOBackend creates a MinIO client for the configured endpoint.
// The endpoint may be a bare host:port or a URL whose scheme decides TLS.
func NewMinIOBackend(cfg Config) (*MinIOBackend, error) {
	host, secure := splitEndpoint(cfg.GetStorageEndpoint(), cfg.GetStorageUseSSL())
	if host == "" {
		return nil, fmt.Errorf("storage endpoint is not configured")
	}

	client, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetStorageAccessKey(), cfg.GetStorageSecretKey(), ""),
		Secure: secure,
		Region: cfg.GetStorageRegion(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &MinIOBackend{client: client, region: cfg.GetStorageRegion()}, nil
}

// BucketExists reports whether the bucket exists.
func (b *MinIOBackend) BucketExists(ctx context.Context, bucket string) (bool, error) {
	return b.client.BucketExists(ctx, bucket)
}

// MakeBucket creates the bucket.
func (b *MinIOBackend) MakeBucket(ctx context.Context, bucket string) error {
	return b.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: b.region})
}

// PutObject streams body to bucket/key.
func (b *MinIOBackend) PutObject(ctx context.Context, bucket, key string, body io.Reader, size int64, contentType string) error {
	_, err := b.client.PutObject(ctx, bucket, key, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

// RemoveObject deletes bucket/key.
func (b *MinIOBackend) RemoveObject(ctx context.Context, bucket, key string) error {
	err := b.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{})
	if err != nil && minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("%w: %v", ErrObjectNotFound, err)
	}
	return err
}

// PresignGetObject returns a signed GET URL valid for expiry.
func (b *MinIOBackend) PresignGetObject(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	u, err := b.client.PresignedGetObject(ctx, bucket, key, expiry, url.Values{})
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// splitEndpoint strips an optional scheme from endpoint. An explicit scheme
// overrides useSSL.
func splitEndpoint(endpoint string, useSSL bool) (string, bool) {
	trimmed := strings.TrimSpace(endpoint)
	if !strings.Contains(trimmed, "://") {
		return strings.TrimSuffix(trimmed, "/"), useSSL
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", useSSL
	}
	return parsed.Host, strings.EqualFold(parsed.Scheme, "https")
}

// Compile-time check that MinIOBackend implements Backend.
var _ Backend = (*MinIOBackend)(nil)
