package loan

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

var dialect = goqu.Dialect("postgres")

type PostgresStore struct {
	db           *pgxpool.Pool
	txTimeout    time.Duration
	queryTimeout time.Duration
}

func NewPostgresStore(db *pgxpool.Pool, txTimeout, queryTimeout time.Duration) *PostgresStore {
	return &PostgresStore{db: db, txTimeout: txTimeout, queryTimeout: queryTimeout}
}

func (s *PostgresStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return postgres.WithTx(ctx, s.db, s.txTimeout, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, pgTx{tx: tx})
	})
}

type pgTx struct {
	tx pgx.Tx
}

func (t pgTx) LockBook(ctx context.Context, bookID string) (BookStock, error) {
	stock := BookStock{}
	err := t.tx.QueryRow(ctx, `SELECT id, title, copies FROM books WHERE id = $1 FOR UPDATE`, bookID).
		Scan(&stock.BookID, &stock.Title, &stock.Copies)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BookStock{}, ErrBookNotFound
		}
		return BookStock{}, postgres.Unavailable(fmt.Errorf("lock book: %w", err))
	}

	// Counted in a separate statement after the lock is held: under read
	// committed it takes a fresh snapshot and sees the loans committed by the
	// previous holder of the lock.
	err = t.tx.QueryRow(ctx, `SELECT COUNT(*) FROM loans WHERE book_id = $1 AND returned = false`, bookID).
		Scan(&stock.Outstanding)
	if err != nil {
		return BookStock{}, postgres.Unavailable(fmt.Errorf("count outstanding loans: %w", err))
	}
	return stock, nil
}

func (t pgTx) InsertLoan(ctx context.Context, l *Loan) error {
	const query = `
	INSERT INTO loans (user_id, book_id, loan_date, due_date, returned)
	VALUES ($1, $2, now(), $3, false)
	RETURNING id, loan_date
	`
	if err := t.tx.QueryRow(ctx, query, l.UserID, l.BookID, l.DueDate.Time).Scan(&l.ID, &l.LoanDate); err != nil {
		return postgres.Unavailable(fmt.Errorf("insert loan: %w", err))
	}
	return nil
}

func (t pgTx) MarkReturned(ctx context.Context, loanID int64, returnDate time.Time, ownerID string) (string, error) {
	query := `
	UPDATE loans SET returned = true, return_date = $2
	WHERE id = $1 AND returned = false
	RETURNING book_id
	`
	args := []any{loanID, returnDate}
	if ownerID != "" {
		query = `
		UPDATE loans SET returned = true, return_date = $2
		WHERE id = $1 AND returned = false AND user_id = $3
		RETURNING book_id
		`
		args = append(args, ownerID)
	}

	var bookID string
	if err := t.tx.QueryRow(ctx, query, args...).Scan(&bookID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrAlreadyReturnedOrNotFound
		}
		return "", postgres.Unavailable(fmt.Errorf("mark loan returned: %w", err))
	}
	return bookID, nil
}

func (t pgTx) BookStock(ctx context.Context, bookID string) (BookStock, error) {
	const query = `
	SELECT b.id, b.title, b.copies,
	       (SELECT COUNT(*) FROM loans l WHERE l.book_id = b.id AND l.returned = false)
	FROM books b
	WHERE b.id = $1
	`
	var stock BookStock
	if err := t.tx.QueryRow(ctx, query, bookID).Scan(&stock.BookID, &stock.Title, &stock.Copies, &stock.Outstanding); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BookStock{}, ErrBookNotFound
		}
		return BookStock{}, postgres.Unavailable(fmt.Errorf("read book stock: %w", err))
	}
	return stock, nil
}

func selectLoans() *goqu.SelectDataset {
	return dialect.
		From(goqu.T("loans").As("l")).
		InnerJoin(goqu.T("books").As("b"), goqu.On(goqu.I("b.id").Eq(goqu.I("l.book_id")))).
		Select(
			goqu.I("l.id"),
			goqu.I("l.user_id"),
			goqu.I("l.book_id"),
			goqu.I("b.title"),
			goqu.I("l.loan_date"),
			goqu.I("l.due_date"),
			goqu.I("l.return_date"),
			goqu.I("l.returned"),
		)
}

func buildUserLoansQuery(userID string) (string, []any, error) {
	return selectLoans().
		Where(goqu.I("l.user_id").Eq(userID)).
		Order(goqu.I("l.loan_date").Desc(), goqu.I("l.id").Desc()).
		Prepared(true).
		ToSQL()
}

func buildOverdueQuery(asOf time.Time) (string, []any, error) {
	return selectLoans().
		Where(
			goqu.I("l.returned").IsFalse(),
			goqu.I("l.due_date").Lt(asOf),
		).
		Order(goqu.I("l.due_date").Asc(), goqu.I("l.id").Asc()).
		Prepared(true).
		ToSQL()
}

func (s *PostgresStore) query(ctx context.Context, sql string, args []any) ([]Loan, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	rows, err := s.db.Query(timeoutCtx, sql, args...)
	if err != nil {
		return nil, postgres.Unavailable(fmt.Errorf("query loans: %w", err))
	}
	defer rows.Close()

	loans := []Loan{}
	for rows.Next() {
		var (
			l          Loan
			dueDate    time.Time
			returnDate *time.Time
		)
		if err := rows.Scan(&l.ID, &l.UserID, &l.BookID, &l.BookTitle, &l.LoanDate, &dueDate, &returnDate, &l.Returned); err != nil {
			return nil, fmt.Errorf("scan loan: %w", err)
		}
		l.DueDate = NewDate(dueDate)
		if returnDate != nil {
			d := NewDate(*returnDate)
			l.ReturnDate = &d
		}
		loans = append(loans, l)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.Unavailable(err)
	}
	return loans, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]Loan, error) {
	sql, args, err := buildUserLoansQuery(userID)
	if err != nil {
		return nil, fmt.Errorf("build user loans query: %w", err)
	}
	return s.query(ctx, sql, args)
}

func (s *PostgresStore) ListOverdue(ctx context.Context, asOf time.Time) ([]Loan, error) {
	sql, args, err := buildOverdueQuery(asOf)
	if err != nil {
		return nil, fmt.Errorf("build overdue query: %w", err)
	}
	return s.query(ctx, sql, args)
}
