package categories

import (
	"context"

	"classifieds_backend/platform/logger"
)

// Service exposes the category catalog.
type Service struct {
	repo Repository
	log  *logger.Logger
}

// NewService creates a new categories service.
func NewService(repo Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Seed inserts the catalog when the table is empty.
func (s *Service) Seed(ctx context.Context) error {
	total, err := s.repo.Count(ctx)
	if err != nil {
		return err
	}
	if total > 0 {
		return nil
	}
	if err := s.repo.InsertNames(ctx, Names()); err != nil {
		return err
	}
	s.log.Info("categories seeded", "count", len(names))
	return nil
}

// List returns stored category names.
func (s *Service) List(ctx context.Context) ([]string, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(items))
	for _, c := range items {
		out = append(out, c.Name)
	}
	return out, nil
}

// Resolve returns the stored category for name.
func (s *Service) Resolve(ctx context.Context, name string) (Category, error) {
	return s.repo.GetByName(ctx, name)
}
