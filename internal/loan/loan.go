package loan

import (
	"errors"
	"fmt"
	"time"

	"libraryapi/internal/book"
)

var (
	// ErrBookNotFound is returned when a loan references a book that does not exist.
	ErrBookNotFound = errors.New("book not found")
	// ErrNoStockAvailable is returned when every copy of the book is on loan.
	// The concrete error is a *StockError.
	ErrNoStockAvailable = errors.New("no stock available")
	// ErrAlreadyReturnedOrNotFound is returned when no active loan matches the
	// return request.
	ErrAlreadyReturnedOrNotFound = errors.New("loan not found or already returned")
)

// StockError describes a refused checkout.
type StockError struct {
	BookID          string `json:"bookId"`
	Title           string `json:"title"`
	AvailableCopies int    `json:"availableCopies"`
}

func (e *StockError) Error() string {
	return fmt.Sprintf("no stock available for book %s (%d available)", e.BookID, e.AvailableCopies)
}

func (e *StockError) Unwrap() error { return ErrNoStockAvailable }

const (
	StatusActive   = "active"
	StatusReturned = "returned"
)

// Date is a calendar date rendered as YYYY-MM-DD.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string { return d.Format(dateLayout) }

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

// Loan is one checkout of one copy. A loan is created active and transitions
// once to returned.
type Loan struct {
	ID         int64     `json:"loanId"`
	UserID     string    `json:"userId"`
	BookID     string    `json:"bookId"`
	BookTitle  string    `json:"bookTitle"`
	LoanDate   time.Time `json:"loanDate"`
	DueDate    Date      `json:"dueDate"`
	ReturnDate *Date     `json:"returnDate"`
	Returned   bool      `json:"-"`
	Status     string    `json:"status"`
}

func (l *Loan) setStatus() {
	l.Status = StatusActive
	if l.Returned {
		l.Status = StatusReturned
	}
}

// BookStock is a book row together with the live count of its unreturned loans.
type BookStock struct {
	BookID      string
	Title       string
	Copies      int
	Outstanding int
}

func (s BookStock) Available() int {
	return book.AvailableCopies(s.Copies, s.Outstanding)
}

// Receipt is the result of a successful checkout. AvailableCopies is the
// availability right after the checkout.
type Receipt struct {
	LoanID          int64  `json:"loanId"`
	BookID          string `json:"bookId"`
	BookTitle       string `json:"bookTitle"`
	UserID          string `json:"userId"`
	DueDate         Date   `json:"dueDate"`
	Status          string `json:"status"`
	AvailableCopies int    `json:"availableCopies"`
}

// ReturnReceipt is the result of a successful return.
type ReturnReceipt struct {
	LoanID          int64  `json:"loanId"`
	BookID          string `json:"bookId"`
	BookTitle       string `json:"bookTitle"`
	ReturnDate      Date   `json:"returnDate"`
	Status          string `json:"status"`
	AvailableCopies int    `json:"availableCopies"`
}

// Caller identifies who performs a return. Non-admin callers may only return
// their own loans.
type Caller struct {
	UserID  string
	IsAdmin bool
}
