package author

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when an author is not found.
	ErrNotFound = errors.New("author not found")
	// ErrHasBooks is returned when deleting an author that still has books.
	ErrHasBooks = errors.New("author has books")
	// ErrEmptyUpdate is returned when an update carries no fields.
	ErrEmptyUpdate = errors.New("no fields to update")
)

type Author struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Bio        string    `json:"bio"`
	BooksCount int       `json:"books_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Update struct {
	Name *string
	Bio  *string
}

func (u Update) IsEmpty() bool {
	return u.Name == nil && u.Bio == nil
}

type Query struct {
	Q      string
	Limit  int
	Offset int
}
