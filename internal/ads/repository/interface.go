package repository

import (
	"context"
	"time"

	"classifieds_backend/internal/ads/query"

	"github.com/google/uuid"
)

// Ad is a stored ad joined with its category and owner.
type Ad struct {
	ID           int64
	Title        string
	Description  string
	Price        int64
	Images       []string
	CategoryID   int32
	Category     string
	UserID       uuid.UUID
	UserEmail    string
	ContactPhone *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Listing projects the fields query clauses evaluate.
func (a Ad) Listing() query.Listing {
	return query.Listing{
		ID:       a.ID,
		Title:    a.Title,
		Price:    a.Price,
		Category: a.Category,
		OwnerID:  a.UserID,
	}
}

// CreateParams contains data for creating an ad.
type CreateParams struct {
	Title        string
	Description  string
	Price        int64
	Images       []string
	CategoryID   int32
	UserID       uuid.UUID
	ContactPhone *string
}

// UpdateParams replaces the editable fields of an ad.
type UpdateParams struct {
	ID           int64
	Title        string
	Description  string
	Price        int64
	Images       []string
	CategoryID   int32
	ContactPhone *string
}

// Repository is the durable ad store.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (Ad, error)
	GetByID(ctx context.Context, id int64) (Ad, error)
	Update(ctx context.Context, params UpdateParams) (Ad, error)
	Delete(ctx context.Context, id int64) error
	Search(ctx context.Context, filter query.Filter, page query.PageRequest) (query.Page[Ad], error)

	// RecordUploads registers userID as the uploader of keys.
	RecordUploads(ctx context.Context, userID uuid.UUID, keys []string) error
	// ForeignImages returns the keys userID did not upload, in input order.
	ForeignImages(ctx context.Context, userID uuid.UUID, keys []string) ([]string, error)
	// ReferencedImages returns the keys still attached to at least one ad.
	ReferencedImages(ctx context.Context, keys []string) ([]string, error)
}
