package loan

import (
	"context"
	"sort"
	"sync"
	"time"
)

// memStore is an in-memory Store. Each book has its own mutex that a
// transaction holds from LockBook until it ends, mirroring SELECT ... FOR UPDATE.
type memStore struct {
	mu        sync.Mutex
	books     map[string]*memBook
	loans     []*Loan
	nextID    int64
	bookLocks map[string]*sync.Mutex

	insertErr error
}

type memBook struct {
	title  string
	copies int
}

func newMemStore() *memStore {
	return &memStore{
		books:     map[string]*memBook{},
		bookLocks: map[string]*sync.Mutex{},
	}
}

func (s *memStore) addBook(id, title string, copies int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.books[id] = &memBook{title: title, copies: copies}
	s.bookLocks[id] = &sync.Mutex{}
}

func (s *memStore) outstanding(bookID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outstandingLocked(bookID)
}

func (s *memStore) outstandingLocked(bookID string) int {
	n := 0
	for _, l := range s.loans {
		if l.BookID == bookID && !l.Returned {
			n++
		}
	}
	return n
}

func (s *memStore) loanCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.loans)
}

func (s *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx := &memTx{store: s, held: map[string]*sync.Mutex{}}
	defer tx.release()

	if err := fn(ctx, tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func (s *memStore) list(match func(*Loan) bool, less func(a, b Loan) bool) []Loan {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Loan
	for _, l := range s.loans {
		if !match(l) {
			continue
		}
		c := *l
		c.BookTitle = s.books[l.BookID].title
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func (s *memStore) ListByUser(ctx context.Context, userID string) ([]Loan, error) {
	return s.list(
		func(l *Loan) bool { return l.UserID == userID },
		func(a, b Loan) bool { return a.ID > b.ID },
	), nil
}

func (s *memStore) ListOverdue(ctx context.Context, asOf time.Time) ([]Loan, error) {
	return s.list(
		func(l *Loan) bool { return !l.Returned && l.DueDate.Before(asOf) },
		func(a, b Loan) bool { return a.DueDate.Before(b.DueDate.Time) },
	), nil
}

type memTx struct {
	store *memStore
	held  map[string]*sync.Mutex
	undo  []func()
}

func (t *memTx) release() {
	for _, m := range t.held {
		m.Unlock()
	}
}

func (t *memTx) rollback() {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
}

func (t *memTx) LockBook(ctx context.Context, bookID string) (BookStock, error) {
	t.store.mu.Lock()
	lock, ok := t.store.bookLocks[bookID]
	t.store.mu.Unlock()
	if !ok {
		return BookStock{}, ErrBookNotFound
	}
	if _, held := t.held[bookID]; !held {
		lock.Lock()
		t.held[bookID] = lock
	}
	return t.BookStock(ctx, bookID)
}

func (t *memTx) InsertLoan(ctx context.Context, l *Loan) error {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.insertErr != nil {
		return s.insertErr
	}
	s.nextID++
	l.ID = s.nextID
	l.LoanDate = time.Now()
	stored := *l
	s.loans = append(s.loans, &stored)
	t.undo = append(t.undo, func() {
		for i, existing := range s.loans {
			if existing.ID == stored.ID {
				s.loans = append(s.loans[:i], s.loans[i+1:]...)
				return
			}
		}
	})
	return nil
}

func (t *memTx) MarkReturned(ctx context.Context, loanID int64, returnDate time.Time, ownerID string) (string, error) {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range s.loans {
		if l.ID != loanID || l.Returned || (ownerID != "" && l.UserID != ownerID) {
			continue
		}
		l.Returned = true
		d := NewDate(returnDate)
		l.ReturnDate = &d
		t.undo = append(t.undo, func() {
			l.Returned = false
			l.ReturnDate = nil
		})
		return l.BookID, nil
	}
	return "", ErrAlreadyReturnedOrNotFound
}

func (t *memTx) BookStock(ctx context.Context, bookID string) (BookStock, error) {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.books[bookID]
	if !ok {
		return BookStock{}, ErrBookNotFound
	}
	return BookStock{
		BookID:      bookID,
		Title:       b.title,
		Copies:      b.copies,
		Outstanding: s.outstandingLocked(bookID),
	}, nil
}
