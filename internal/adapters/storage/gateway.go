package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"classifieds_backend/platform/apperr"
	"classifieds_backend/platform/logger"
)

const (
	// MinPresignExpiry is the shortest lifetime a presigned URL may have.
	MinPresignExpiry = time.Minute
	// MaxPresignExpiry is the longest lifetime a presigned URL may have.
	MaxPresignExpiry = 7 * 24 * time.Hour
	// DefaultPresignExpiry applies when no duration is configured.
	DefaultPresignExpiry = time.Hour
)

// ClampPresignExpiry bounds d to [MinPresignExpiry, MaxPresignExpiry].
// A zero duration means unset and yields DefaultPresignExpiry.
func ClampPresignExpiry(d time.Duration) time.Duration {
	switch {
	case d == 0:
		return DefaultPresignExpiry
	case d < MinPresignExpiry:
		return MinPresignExpiry
	case d > MaxPresignExpiry:
		return MaxPresignExpiry
	default:
		return d
	}
}

// GatewayOptions configures a Gateway.
type GatewayOptions struct {
	Bucket string
	// InternalEndpoint is the address the backend was dialed with.
	InternalEndpoint string
	// ExternalEndpoint is the address browsers use; it replaces InternalEndpoint
	// in presigned URLs when the two differ. It must not contain InternalEndpoint,
	// see ValidateEndpoints.
	ExternalEndpoint string
	PresignExpiry    time.Duration
}

// Gateway implements ObjectStorage on top of a Backend.
type Gateway struct {
	backend          Backend
	keys             *KeyGenerator
	bucket           string
	internalEndpoint string
	externalEndpoint string
	presignExpiry    time.Duration
	log              *logger.Logger

	setupMu  sync.RWMutex
	setupErr error
}

// NewGateway creates a gateway over the given backend.
func NewGateway(backend Backend, opts GatewayOptions, log *logger.Logger) *Gateway {
	return &Gateway{
		backend:          backend,
		keys:             NewKeyGenerator(),
		bucket:           opts.Bucket,
		internalEndpoint: opts.InternalEndpoint,
		externalEndpoint: opts.ExternalEndpoint,
		presignExpiry:    ClampPresignExpiry(opts.PresignExpiry),
		log:              log,
	}
}

// ValidateEndpoints rejects an external endpoint that embeds a different
// internal endpoint, since rewritten URLs would still carry the internal one.
func ValidateEndpoints(internal, external string) error {
	if internal == "" || external == "" || internal == external {
		return nil
	}
	if strings.Contains(external, internal) {
		return fmt.Errorf("%w: external endpoint %q contains internal endpoint %q",
			ErrEndpointConfig, external, internal)
	}
	return nil
}

// NewGatewayFromConfig binds the configured backend and wraps it in a gateway.
func NewGatewayFromConfig(cfg Config, log *logger.Logger) (*Gateway, error) {
	if err := ValidateEndpoints(cfg.GetStorageEndpoint(), cfg.GetStorageExternalEndpoint()); err != nil {
		return nil, err
	}
	backend, err := NewBackend(cfg)
	if err != nil {
		return nil, err
	}
	return NewGateway(backend, GatewayOptions{
		Bucket:           cfg.GetStorageBucket(),
		InternalEndpoint: cfg.GetStorageEndpoint(),
		ExternalEndpoint: cfg.GetStorageExternalEndpoint(),
		PresignExpiry:    cfg.GetStoragePresignedURLDuration(),
	}, log), nil
}

// PresignExpiry returns the effective lifetime of issued URLs.
func (g *Gateway) PresignExpiry() time.Duration {
	return g.presignExpiry
}

// EnsureBucketExists creates the bucket if it doesn't exist. A failure is
// remembered and makes every later upload fail.
func (g *Gateway) EnsureBucketExists(ctx context.Context) error {
	err := g.ensureBucket(ctx)

	g.setupMu.Lock()
	g.setupErr = err
	g.setupMu.Unlock()

	if err != nil {
		g.log.StorageError("ensure_bucket", g.bucket, err)
		return storageError(apperr.KindUnavailable, ErrStorageUnavailable, "storage.EnsureBucketExists",
			"storage bucket unavailable", err)
	}
	g.log.Info("storage bucket ready", "bucket", g.bucket)
	return nil
}

func (g *Gateway) ensureBucket(ctx context.Context) error {
	exists, err := g.backend.BucketExists(ctx, g.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", g.bucket, err)
	}
	if exists {
		return nil
	}
	if err := g.backend.MakeBucket(ctx, g.bucket); err != nil {
		return fmt.Errorf("create bucket %s: %w", g.bucket, err)
	}
	return nil
}

// Upload stores one validated file and returns its key.
func (g *Gateway) Upload(ctx context.Context, file Upload) (string, error) {
	if err := ValidateUpload(file); err != nil {
		return "", err
	}

	g.setupMu.RLock()
	setupErr := g.setupErr
	g.setupMu.RUnlock()
	if setupErr != nil {
		return "", storageError(apperr.KindInternal, ErrStorageWrite, "storage.Upload",
			"unable to upload image", errors.Join(ErrStorageUnavailable, setupErr))
	}

	key := g.keys.Generate(file.Filename)
	contentType := ResolveContentType(file.ContentType)

	if err := g.backend.PutObject(ctx, g.bucket, key, file.Body, file.Size, contentType); err != nil {
		g.log.StorageError("put_object", key, err)
		return "", storageError(apperr.KindInternal, ErrStorageWrite, "storage.Upload",
			"unable to upload image", err)
	}

	g.log.StorageEvent("put_object", key, "content_type", contentType, "size", file.Size)
	return key, nil
}

// UploadBatch uploads files sequentially. On failure the objects already
// written by this call are removed and no keys are returned.
func (g *Gateway) UploadBatch(ctx context.Context, files []Upload) ([]string, error) {
	keys := make([]string, 0, len(files))
	for _, file := range files {
		key, err := g.Upload(ctx, file)
		if err != nil {
			g.rollback(ctx, keys)
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (g *Gateway) rollback(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := g.Delete(ctx, key); err != nil {
			g.log.Warn("failed to roll back uploaded object", "key", key, "error", err)
		}
	}
}

// Delete removes the object stored under key.
func (g *Gateway) Delete(ctx context.Context, key string) error {
	if strings.TrimSpace(key) == "" {
		return nil
	}

	if err := g.backend.RemoveObject(ctx, g.bucket, key); err != nil {
		if errors.Is(err, ErrObjectNotFound) {
			return nil
		}
		g.log.StorageError("remove_object", key, err)
		return storageError(apperr.KindInternal, ErrStorageDelete, "storage.Delete",
			fmt.Sprintf("unable to delete object %s", key), err)
	}

	g.log.StorageEvent("remove_object", key)
	return nil
}

// DeleteBatch deletes keys in order and stops at the first failure.
func (g *Gateway) DeleteBatch(ctx context.Context, keys []string) error {
	for _, key := range keys {
		if err := g.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// PresignedGetURL signs a GET for key against the internal endpoint and then
// swaps in the external endpoint so clients can reach it.
func (g *Gateway) PresignedGetURL(ctx context.Context, key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", nil
	}

	signed, err := g.backend.PresignGetObject(ctx, g.bucket, key, g.presignExpiry)
	if err != nil {
		g.log.StorageError("presign_get", key, err)
		return "", storageError(apperr.KindInternal, ErrStorageURL, "storage.PresignedGetURL",
			fmt.Sprintf("unable to generate presigned URL for object %s", key), err)
	}

	return g.rewriteEndpoint(signed), nil
}

// PresignedGetURLs returns one URL per key, in input order.
func (g *Gateway) PresignedGetURLs(ctx context.Context, keys []string) ([]string, error) {
	urls := make([]string, 0, len(keys))
	for _, key := range keys {
		u, err := g.PresignedGetURL(ctx, key)
		if err != nil {
			return nil, err
		}
		urls = append(urls, u)
	}
	return urls, nil
}

func (g *Gateway) rewriteEndpoint(signed string) string {
	if g.internalEndpoint == "" || g.externalEndpoint == "" || g.internalEndpoint == g.externalEndpoint {
		return signed
	}
	return strings.ReplaceAll(signed, g.internalEndpoint, g.externalEndpoint)
}

// Compile-time check that Gateway implements ObjectStorage.
var _ ObjectStorage = (*Gateway)(nil)
