package book

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"libraryapi/internal/platform/postgres"
)

// outstandingLoansSQL counts the unreturned loans of the book aliased as b.
const outstandingLoansSQL = "(SELECT COUNT(*) FROM loans l WHERE l.book_id = b.id AND l.returned = false)"

var dialect = goqu.Dialect("postgres")

type PostgresRepo struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPostgresRepo(db *pgxpool.Pool, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{db: db, timeout: timeout}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func selectBooks() *goqu.SelectDataset {
	return dialect.
		From(goqu.T("books").As("b")).
		LeftJoin(goqu.T("authors").As("a"), goqu.On(goqu.I("a.id").Eq(goqu.I("b.author_id")))).
		Select(
			goqu.I("b.id"),
			goqu.I("b.title"),
			goqu.I("b.author_id"),
			goqu.L("COALESCE(a.name, '')"),
			goqu.I("b.publish_year"),
			goqu.I("b.copies"),
			goqu.I("b.cover_url"),
			goqu.I("b.created_at"),
			goqu.I("b.updated_at"),
			goqu.L(outstandingLoansSQL).As("outstanding"),
		)
}

func filterBooks(ds *goqu.SelectDataset, q Query) *goqu.SelectDataset {
	if q.AuthorID != "" {
		ds = ds.Where(goqu.I("b.author_id").Eq(q.AuthorID))
	}
	if q.Q != "" {
		pattern := "%" + q.Q + "%"
		ds = ds.Where(goqu.Or(
			goqu.I("b.title").ILike(pattern),
			goqu.I("a.name").ILike(pattern),
		))
	}
	if q.AvailableOnly {
		ds = ds.Where(goqu.L("b.copies > " + outstandingLoansSQL))
	}
	return ds
}

// buildListQueries returns the page query and the matching count query.
func buildListQueries(q Query) (dataSQL string, dataArgs []any, countSQL string, countArgs []any, err error) {
	filtered := filterBooks(selectBooks(), q)

	countSQL, countArgs, err = filtered.Select(goqu.COUNT(goqu.Star())).Prepared(true).ToSQL()
	if err != nil {
		return "", nil, "", nil, fmt.Errorf("build count query: %w", err)
	}

	page := filtered.Order(goqu.I("b.title").Asc(), goqu.I("b.id").Asc())
	if q.Limit > 0 {
		page = page.Limit(uint(q.Limit))
	}
	if q.Offset > 0 {
		page = page.Offset(uint(q.Offset))
	}
	dataSQL, dataArgs, err = page.Prepared(true).ToSQL()
	if err != nil {
		return "", nil, "", nil, fmt.Errorf("build list query: %w", err)
	}
	return dataSQL, dataArgs, countSQL, countArgs, nil
}

func scanBook(row pgx.Row) (Book, error) {
	var b Book
	var outstanding int
	if err := row.Scan(
		&b.ID, &b.Title, &b.AuthorID, &b.AuthorName, &b.PublishYear, &b.Copies, &b.CoverURL,
		&b.CreatedAt, &b.UpdatedAt, &outstanding,
	); err != nil {
		return Book{}, err
	}
	b.AvailableCopies = AvailableCopies(b.Copies, outstanding)
	return b, nil
}

func (r *PostgresRepo) List(ctx context.Context, q Query) ([]Book, int, error) {
	dataSQL, dataArgs, countSQL, countArgs, err := buildListQueries(q)
	if err != nil {
		return nil, 0, err
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	var total int
	if err := r.db.QueryRow(timeoutCtx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, postgres.Unavailable(fmt.Errorf("count books: %w", err))
	}

	rows, err := r.db.Query(timeoutCtx, dataSQL, dataArgs...)
	if err != nil {
		return nil, 0, postgres.Unavailable(fmt.Errorf("list books: %w", err))
	}
	defer rows.Close()

	out := []Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan book: %w", err)
		}
		out = append(out, b)
	}
	return out, total, rows.Err()
}

func (r *PostgresRepo) GetByID(ctx context.Context, id string) (Book, error) {
	query, args, err := selectBooks().Where(goqu.I("b.id").Eq(id)).Prepared(true).ToSQL()
	if err != nil {
		return Book{}, fmt.Errorf("build get query: %w", err)
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	b, err := scanBook(r.db.QueryRow(timeoutCtx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Book{}, ErrNotFound
		}
		return Book{}, postgres.Unavailable(fmt.Errorf("get book: %w", err))
	}
	return b, nil
}

func (r *PostgresRepo) Create(ctx context.Context, b *Book) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	const sql = `
		INSERT INTO books (id, title, author_id, publish_year, copies, cover_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING created_at, updated_at`

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	err := r.db.QueryRow(timeoutCtx, sql, b.ID, b.Title, b.AuthorID, b.PublishYear, b.Copies, b.CoverURL).
		Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return ErrInvalidAuthor
		}
		return fmt.Errorf("insert book: %w", err)
	}
	return nil
}

func buildUpdateQuery(id string, u Update) (string, []any, error) {
	record := goqu.Record{"updated_at": goqu.L("NOW()")}
	if u.Title != nil {
		record["title"] = *u.Title
	}
	if u.AuthorID != nil {
		record["author_id"] = *u.AuthorID
	}
	if u.PublishYear != nil {
		record["publish_year"] = *u.PublishYear
	}
	if u.Copies != nil {
		record["copies"] = *u.Copies
	}
	if u.CoverURL != nil {
		record["cover_url"] = *u.CoverURL
	}
	return dialect.Update("books").
		Set(record).
		Where(goqu.C("id").Eq(id)).
		Returning("id").
		Prepared(true).
		ToSQL()
}

func (r *PostgresRepo) Update(ctx context.Context, id string, u Update) (Book, error) {
	query, args, err := buildUpdateQuery(id, u)
	if err != nil {
		return Book{}, fmt.Errorf("build update query: %w", err)
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	var updatedID string
	if err := r.db.QueryRow(timeoutCtx, query, args...).Scan(&updatedID); err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return Book{}, ErrNotFound
		case postgres.IsForeignKeyViolation(err):
			return Book{}, ErrInvalidAuthor
		}
		return Book{}, fmt.Errorf("update book: %w", err)
	}
	return r.GetByID(ctx, updatedID)
}

func (r *PostgresRepo) Delete(ctx context.Context, id string) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.Exec(timeoutCtx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return ErrHasLoans
		}
		return fmt.Errorf("delete book: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
