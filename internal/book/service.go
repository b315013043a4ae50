package book

import (
	"context"
)

// Service provides book-related business logic.
type Service struct {
	repo Repository
}

// NewService creates a new book service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns a page of books matching the query and the total match count.
func (s *Service) List(ctx context.Context, q Query) ([]Book, int, error) {
	books, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	if books == nil {
		books = []Book{}
	}
	return books, total, nil
}

// Get returns a book by its ID.
func (s *Service) Get(ctx context.Context, id string) (Book, error) {
	return s.repo.GetByID(ctx, id)
}

// Create stores a new book. A new book has all of its copies available.
func (s *Service) Create(ctx context.Context, b *Book) error {
	if err := s.repo.Create(ctx, b); err != nil {
		return err
	}
	b.AvailableCopies = AvailableCopies(b.Copies, 0)
	return nil
}

// Update applies a partial update. At least one field must be set.
func (s *Service) Update(ctx context.Context, id string, u Update) (Book, error) {
	if u.IsEmpty() {
		return Book{}, ErrEmptyUpdate
	}
	return s.repo.Update(ctx, id, u)
}

// Delete removes a book that has never been loaned.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
