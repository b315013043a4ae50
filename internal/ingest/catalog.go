package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"libraryapi/internal/book"
	"libraryapi/internal/platform/openlibrary"
	"libraryapi/internal/platform/postgres"
)

func newBook(doc openlibrary.SearchDoc, title, authorID string, copies int) book.Book {
	b := book.Book{
		Title:       title,
		AuthorID:    authorID,
		PublishYear: doc.FirstPublishYear,
		Copies:      copies,
	}
	if isbn := preferredISBN(doc.ISBN); isbn != "" {
		cover := openlibrary.CoverURL(isbn)
		b.CoverURL = &cover
	}
	return b
}

// preferredISBN picks the first 13 digit ISBN, falling back to the first one.
func preferredISBN(isbns []string) string {
	for _, isbn := range isbns {
		if len(isbn) == 13 {
			return isbn
		}
	}
	if len(isbns) > 0 {
		return isbns[0]
	}
	return ""
}

// PostgresCatalog resolves authors by name and delegates book creation to
// the book repository.
type PostgresCatalog struct {
	db      *pgxpool.Pool
	books   book.Repository
	timeout time.Duration
}

func NewPostgresCatalog(db *pgxpool.Pool, books book.Repository, timeout time.Duration) *PostgresCatalog {
	return &PostgresCatalog{db: db, books: books, timeout: timeout}
}

func (c *PostgresCatalog) EnsureAuthor(ctx context.Context, name, bio string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var id string
	err := c.db.QueryRow(ctx, `SELECT id FROM authors WHERE lower(name) = lower($1) LIMIT 1`, name).Scan(&id)
	if err == nil {
		return id, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", false, postgres.Unavailable(fmt.Errorf("find author: %w", err))
	}

	if err := c.db.QueryRow(ctx, `INSERT INTO authors (name, bio) VALUES ($1, $2) RETURNING id`, name, bio).Scan(&id); err != nil {
		return "", false, postgres.Unavailable(fmt.Errorf("insert author: %w", err))
	}
	return id, true, nil
}

func (c *PostgresCatalog) BookExists(ctx context.Context, title, authorID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var exists bool
	err := c.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM books WHERE lower(title) = lower($1) AND author_id = $2)`,
		title, authorID).Scan(&exists)
	if err != nil {
		return false, postgres.Unavailable(fmt.Errorf("check book: %w", err))
	}
	return exists, nil
}

func (c *PostgresCatalog) CreateBook(ctx context.Context, b *book.Book) error {
	return c.books.Create(ctx, b)
}
