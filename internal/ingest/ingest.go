// Package ingest imports authors and books from Open Library into the catalog.
package ingest

import (
	"context"

	"libraryapi/internal/book"
	"libraryapi/internal/platform/openlibrary"
)

type Config struct {
	Subjects []string
	// BooksMax caps the number of books created by one run.
	BooksMax int
	// CopiesPerBook is the stock given to each imported book.
	CopiesPerBook int
}

// Result counts what one run did.
type Result struct {
	BooksFetched   int
	BooksCreated   int
	BooksSkipped   int
	AuthorsCreated int
}

type OpenLibrary interface {
	SearchBySubject(ctx context.Context, subject string, limit int) (*openlibrary.SearchResponse, error)
	GetAuthor(ctx context.Context, authorKey string) (*openlibrary.AuthorDetails, error)
}

// Catalog is the write side of the library catalog used by the importer.
type Catalog interface {
	// EnsureAuthor returns the id of the author with this name, creating it
	// when missing.
	EnsureAuthor(ctx context.Context, name, bio string) (id string, created bool, err error)
	BookExists(ctx context.Context, title, authorID string) (bool, error)
	CreateBook(ctx context.Context, b *book.Book) error
}
