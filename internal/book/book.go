package book

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a book is not found.
	ErrNotFound = errors.New("book not found")
	// ErrInvalidAuthor is returned when author_id does not reference an existing author.
	ErrInvalidAuthor = errors.New("author does not exist")
	// ErrHasLoans is returned when deleting a book that is referenced by loans.
	ErrHasLoans = errors.New("book has loans")
	// ErrEmptyUpdate is returned when an update carries no fields.
	ErrEmptyUpdate = errors.New("no fields to update")
)

// Book is a catalog title. Copies is the static number of physical copies;
// AvailableCopies is derived from the outstanding loans at read time.
type Book struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	AuthorID        string    `json:"author_id"`
	AuthorName      string    `json:"author_name,omitempty"`
	PublishYear     int       `json:"publish_year"`
	Copies          int       `json:"copies"`
	CoverURL        *string   `json:"cover_url,omitempty"`
	AvailableCopies int       `json:"available_copies"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Update holds the fields of a partial book update. Nil fields are left unchanged.
type Update struct {
	Title       *string
	AuthorID    *string
	PublishYear *int
	Copies      *int
	CoverURL    *string
}

func (u Update) IsEmpty() bool {
	return u.Title == nil && u.AuthorID == nil && u.PublishYear == nil && u.Copies == nil && u.CoverURL == nil
}

// Query defines filters and pagination for listing books.
type Query struct {
	AuthorID      string
	Q             string
	AvailableOnly bool
	Limit         int
	Offset        int
}
