package author

import (
	"context"
	"strings"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, q Query) ([]Author, int, error) {
	authors, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	if authors == nil {
		authors = []Author{}
	}
	return authors, total, nil
}

func (s *Service) Get(ctx context.Context, id string) (Author, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Create(ctx context.Context, a *Author) error {
	a.Name = strings.TrimSpace(a.Name)
	return s.repo.Create(ctx, a)
}

func (s *Service) Update(ctx context.Context, id string, u Update) (Author, error) {
	if u.IsEmpty() {
		return Author{}, ErrEmptyUpdate
	}
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		u.Name = &name
	}
	return s.repo.Update(ctx, id, u)
}

// Delete removes an author without books.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
