package category

import (
	"context"
	"errors"

	"voting-service/internal/slug"
)

var (
	ErrNotFound     = errors.New("category not found")
	ErrNameRequired = errors.New("category name required")
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, name, description string) (*Category, error) {
	if name == "" {
		return nil, ErrNameRequired
	}

	sl, err := slug.Generate(ctx, name, s.repo.SlugExists)
	if err != nil {
		return nil, err
	}

	c := &Category{
		Name:        name,
		Slug:        sl,
		Description: description,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) List(ctx context.Context) ([]Category, error) {
	return s.repo.List(ctx)
}

func (s *Service) GetBySlug(ctx context.Context, sl string) (*Category, error) {
	return s.repo.GetBySlug(ctx, sl)
}

func (s *Service) Delete(ctx context.Context, sl string) error {
	c, err := s.repo.GetBySlug(ctx, sl)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, c.ID)
}
