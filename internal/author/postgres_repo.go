package author

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"libraryapi/internal/platform/postgres"
)

const booksCountSQL = "(SELECT COUNT(*) FROM books b WHERE b.author_id = a.id)"

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

func selectAuthors() *goqu.SelectDataset {
	return dialect.
		From(goqu.T("authors").As("a")).
		Select(
			goqu.I("a.id"),
			goqu.I("a.name"),
			goqu.I("a.bio"),
			goqu.L(booksCountSQL).As("books_count"),
			goqu.I("a.created_at"),
			goqu.I("a.updated_at"),
		)
}

func buildListQueries(q Query) (dataSQL string, dataArgs []any, countSQL string, countArgs []any, err error) {
	ds := selectAuthors()
	if q.Q != "" {
		ds = ds.Where(goqu.I("a.name").ILike("%" + q.Q + "%"))
	}

	countSQL, countArgs, err = ds.Select(goqu.COUNT(goqu.Star())).Prepared(true).ToSQL()
	if err != nil {
		return "", nil, "", nil, fmt.Errorf("build count query: %w", err)
	}

	page := ds.Order(goqu.I("a.name").Asc(), goqu.I("a.id").Asc())
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

func scanAuthor(row pgx.Row) (Author, error) {
	var a Author
	err := row.Scan(&a.ID, &a.Name, &a.Bio, &a.BooksCount, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (r *PostgresRepo) List(ctx context.Context, q Query) ([]Author, int, error) {
	dataSQL, dataArgs, countSQL, countArgs, err := buildListQueries(q)
	if err != nil {
		return nil, 0, err
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	var total int
	if err := r.db.QueryRow(timeoutCtx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, postgres.Unavailable(fmt.Errorf("count authors: %w", err))
	}

	rows, err := r.db.Query(timeoutCtx, dataSQL, dataArgs...)
	if err != nil {
		return nil, 0, postgres.Unavailable(fmt.Errorf("list authors: %w", err))
	}
	defer rows.Close()

	out := []Author{}
	for rows.Next() {
		a, err := scanAuthor(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan author: %w", err)
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}

func (r *PostgresRepo) GetByID(ctx context.Context, id string) (Author, error) {
	query, args, err := selectAuthors().Where(goqu.I("a.id").Eq(id)).Prepared(true).ToSQL()
	if err != nil {
		return Author{}, fmt.Errorf("build get query: %w", err)
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	a, err := scanAuthor(r.db.QueryRow(timeoutCtx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Author{}, ErrNotFound
		}
		return Author{}, postgres.Unavailable(fmt.Errorf("get author: %w", err))
	}
	return a, nil
}

func (r *PostgresRepo) Create(ctx context.Context, a *Author) error {
	const query = `
	INSERT INTO authors (id, name, bio)
	VALUES (gen_random_uuid(), $1, $2)
	RETURNING id, created_at, updated_at
	`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	if err := r.db.QueryRow(timeoutCtx, query, a.Name, a.Bio).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return fmt.Errorf("insert author: %w", err)
	}
	return nil
}

func (r *PostgresRepo) Update(ctx context.Context, id string, u Update) (Author, error) {
	record := goqu.Record{"updated_at": goqu.L("NOW()")}
	if u.Name != nil {
		record["name"] = *u.Name
	}
	if u.Bio != nil {
		record["bio"] = *u.Bio
	}
	query, args, err := dialect.Update("authors").
		Set(record).
		Where(goqu.C("id").Eq(id)).
		Returning("id").
		Prepared(true).
		ToSQL()
	if err != nil {
		return Author{}, fmt.Errorf("build update query: %w", err)
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	var updatedID string
	if err := r.db.QueryRow(timeoutCtx, query, args...).Scan(&updatedID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Author{}, ErrNotFound
		}
		return Author{}, fmt.Errorf("update author: %w", err)
	}
	return r.GetByID(ctx, updatedID)
}

func (r *PostgresRepo) Delete(ctx context.Context, id string) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()

	tag, err := r.db.Exec(timeoutCtx, `DELETE FROM authors WHERE id = $1`, id)
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return ErrHasBooks
		}
		return fmt.Errorf("delete author: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
