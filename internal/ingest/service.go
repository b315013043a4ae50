package ingest

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"libraryapi/internal/platform/openlibrary"
)

const minPublishYear = 1000

type Service struct {
	ol      OpenLibrary
	catalog Catalog
	cfg     Config
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(ol OpenLibrary, catalog Catalog, cfg Config, logger *slog.Logger) *Service {
	if cfg.CopiesPerBook <= 0 {
		cfg.CopiesPerBook = 1
	}
	return &Service{ol: ol, catalog: catalog, cfg: cfg, logger: logger, now: time.Now}
}

// Run searches every configured subject and creates the books that are not
// in the catalog yet. A failing subject aborts the run; a failing book is
// logged and skipped.
func (s *Service) Run(ctx context.Context) (Result, error) {
	var res Result
	authorIDs := map[string]string{}

	for _, subject := range s.cfg.Subjects {
		remaining := s.cfg.BooksMax - res.BooksCreated
		if remaining <= 0 {
			break
		}

		search, err := s.ol.SearchBySubject(ctx, subject, remaining*2)
		if err != nil {
			return res, err
		}
		res.BooksFetched += len(search.Docs)

		for _, doc := range search.Docs {
			if res.BooksCreated >= s.cfg.BooksMax {
				break
			}
			if err := ctx.Err(); err != nil {
				return res, err
			}
			if !s.importable(doc) {
				res.BooksSkipped++
				continue
			}

			created, err := s.importDoc(ctx, doc, authorIDs, &res)
			if err != nil {
				s.logger.Warn("import book failed", "title", doc.Title, "subject", subject, "error", err)
				res.BooksSkipped++
				continue
			}
			if !created {
				res.BooksSkipped++
			}
		}
	}

	s.logger.Info("catalog import finished",
		"books_fetched", res.BooksFetched,
		"books_created", res.BooksCreated,
		"books_skipped", res.BooksSkipped,
		"authors_created", res.AuthorsCreated,
	)
	return res, nil
}

func (s *Service) importable(doc openlibrary.SearchDoc) bool {
	title := strings.TrimSpace(doc.Title)
	if len(title) < 2 || len(title) > 255 || len(doc.AuthorNames) == 0 {
		return false
	}
	return doc.FirstPublishYear >= minPublishYear && doc.FirstPublishYear <= s.now().Year()
}

func (s *Service) importDoc(ctx context.Context, doc openlibrary.SearchDoc, authorIDs map[string]string, res *Result) (bool, error) {
	name := strings.TrimSpace(doc.AuthorNames[0])

	authorID, ok := authorIDs[name]
	if !ok {
		bio := ""
		if len(doc.AuthorKeys) > 0 {
			if details, err := s.ol.GetAuthor(ctx, doc.AuthorKeys[0]); err == nil {
				bio = details.BioText()
			} else {
				s.logger.Debug("author details unavailable", "author", name, "error", err)
			}
		}

		id, created, err := s.catalog.EnsureAuthor(ctx, name, bio)
		if err != nil {
			return false, err
		}
		if created {
			res.AuthorsCreated++
		}
		authorIDs[name] = id
		authorID = id
	}

	title := strings.TrimSpace(doc.Title)
	exists, err := s.catalog.BookExists(ctx, title, authorID)
	if err != nil || exists {
		return false, err
	}

	b := newBook(doc, title, authorID, s.cfg.CopiesPerBook)
	if err := s.catalog.CreateBook(ctx, &b); err != nil {
		return false, err
	}
	res.BooksCreated++
	return true, nil
}
