package query

import (
	"errors"

	"classifieds_backend/platform/apperr"
)

// DefaultPageSize applies when a caller omits the size.
const DefaultPageSize = 10

// ErrInvalidPageRequest is wrapped by every page validation failure.
var ErrInvalidPageRequest = errors.New("query: invalid page request")

// PageRequest selects a zero-based page of Size items.
type PageRequest struct {
	Page int
	Size int
}

// Validate rejects negative pages and non-positive sizes.
func (p PageRequest) Validate() error {
	switch {
	case p.Page < 0:
		return invalidPage("page must not be negative")
	case p.Size <= 0:
		return invalidPage("size must be positive")
	}
	return nil
}

// Offset is the number of rows skipped before this page.
func (p PageRequest) Offset() int64 {
	return int64(p.Page) * int64(p.Size)
}

func invalidPage(message string) error {
	return &apperr.Error{
		Kind:    apperr.KindValidation,
		Message: message,
		Op:      "query.PageRequest",
		Err:     ErrInvalidPageRequest,
	}
}

// Page is one slice of an ordered result set.
type Page[T any] struct {
	Items         []T
	Page          int
	Size          int
	TotalElements int64
	TotalPages    int
}

// NewPage assembles a page and derives the page count from total.
func NewPage[T any](items []T, req PageRequest, total int64) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{
		Items:         items,
		Page:          req.Page,
		Size:          req.Size,
		TotalElements: total,
		TotalPages:    TotalPages(total, req.Size),
	}
}

// TotalPages returns ceil(total/size), or 0 when size is not positive.
func TotalPages(total int64, size int) int {
	if size <= 0 || total <= 0 {
		return 0
	}
	return int((total + int64(size) - 1) / int64(size))
}

// Map converts the items of a page while keeping its metadata.
func Map[T, U any](p Page[T], fn func(T) U) Page[U] {
	items := make([]U, 0, len(p.Items))
	for _, item := range p.Items {
		items = append(items, fn(item))
	}
	return Page[U]{
		Items:         items,
		Page:          p.Page,
		Size:          p.Size,
		TotalElements: p.TotalElements,
		TotalPages:    p.TotalPages,
	}
}
