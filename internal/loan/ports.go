package loan

import (
	"context"
	"time"
)

//go:generate mockgen -source=ports.go -destination=mock_ports.go -package=loan

// Store persists loans. Every mutation runs inside WithinTx; the transaction
// is committed only when fn returns nil.
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	ListByUser(ctx context.Context, userID string) ([]Loan, error)
	ListOverdue(ctx context.Context, asOf time.Time) ([]Loan, error)
}

// Tx is the set of statements the ledger runs inside one transaction.
type Tx interface {
	// LockBook locks the book row until the transaction ends and returns its
	// stock. Returns ErrBookNotFound when the book does not exist.
	LockBook(ctx context.Context, bookID string) (BookStock, error)
	// InsertLoan stores an active loan and fills in its ID and LoanDate.
	InsertLoan(ctx context.Context, l *Loan) error
	// MarkReturned flips an active loan to returned and returns its book ID.
	// An empty ownerID matches loans of any user. Returns
	// ErrAlreadyReturnedOrNotFound when no active loan matches.
	MarkReturned(ctx context.Context, loanID int64, returnDate time.Time, ownerID string) (string, error)
	BookStock(ctx context.Context, bookID string) (BookStock, error)
}
