package loan

import (
	"context"
	"time"
)

// Service is the loan ledger. It owns the loan lifecycle and the stock check.
type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// CreateLoan checks out one copy of bookID for userID. The stock check and
// the insert run under the book row lock, so concurrent checkouts of the same
// book are serialized.
func (s *Service) CreateLoan(ctx context.Context, userID, bookID string, dueDate time.Time) (Receipt, error) {
	var receipt Receipt
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		stock, err := tx.LockBook(ctx, bookID)
		if err != nil {
			return err
		}

		available := stock.Available()
		if available < 1 {
			return &StockError{BookID: stock.BookID, Title: stock.Title, AvailableCopies: available}
		}

		l := &Loan{
			UserID:  userID,
			BookID:  bookID,
			DueDate: NewDate(dueDate),
		}
		if err := tx.InsertLoan(ctx, l); err != nil {
			return err
		}

		receipt = Receipt{
			LoanID:          l.ID,
			BookID:          stock.BookID,
			BookTitle:       stock.Title,
			UserID:          userID,
			DueDate:         l.DueDate,
			Status:          StatusActive,
			AvailableCopies: available - 1,
		}
		return nil
	})
	if err != nil {
		return Receipt{}, err
	}
	return receipt, nil
}

// ReturnLoan marks an active loan as returned. A second return of the same
// loan fails with ErrAlreadyReturnedOrNotFound.
func (s *Service) ReturnLoan(ctx context.Context, loanID int64, returnDate time.Time, caller Caller) (ReturnReceipt, error) {
	ownerID := caller.UserID
	if caller.IsAdmin {
		ownerID = ""
	}

	var receipt ReturnReceipt
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		date := NewDate(returnDate)
		bookID, err := tx.MarkReturned(ctx, loanID, date.Time, ownerID)
		if err != nil {
			return err
		}

		stock, err := tx.BookStock(ctx, bookID)
		if err != nil {
			return err
		}

		receipt = ReturnReceipt{
			LoanID:          loanID,
			BookID:          bookID,
			BookTitle:       stock.Title,
			ReturnDate:      date,
			Status:          StatusReturned,
			AvailableCopies: stock.Available(),
		}
		return nil
	})
	if err != nil {
		return ReturnReceipt{}, err
	}
	return receipt, nil
}

// GetUserLoans lists the loans of a user, newest first.
func (s *Service) GetUserLoans(ctx context.Context, userID string) ([]Loan, error) {
	loans, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return withStatus(loans), nil
}

// ListOverdue lists active loans whose due date is before asOf.
func (s *Service) ListOverdue(ctx context.Context, asOf time.Time) ([]Loan, error) {
	loans, err := s.store.ListOverdue(ctx, NewDate(asOf).Time)
	if err != nil {
		return nil, err
	}
	return withStatus(loans), nil
}

// Today is the current calendar date of the ledger clock.
func (s *Service) Today() time.Time {
	return NewDate(s.now()).Time
}

func withStatus(loans []Loan) []Loan {
	if loans == nil {
		return []Loan{}
	}
	for i := range loans {
		loans[i].setStatus()
	}
	return loans
}
