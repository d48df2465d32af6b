package service

import (
	"context"

	"classifieds_backend/internal/adapters/storage"
)

// InlineImageCleaner deletes images synchronously through the gateway. It is
// used when no background queue is configured.
type InlineImageCleaner struct {
	storage storage.ObjectStorage
}

func NewInlineImageCleaner(store storage.ObjectStorage) *InlineImageCleaner {
	return &InlineImageCleaner{storage: store}
}

func (c *InlineImageCleaner) ScheduleImageCleanup(ctx context.Context, keys []string) error {
	return c.storage.DeleteBatch(ctx, keys)
}

var _ ImageCleaner = (*InlineImageCleaner)(nil)
