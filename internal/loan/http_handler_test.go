package loan

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libraryapi/internal/httpx"
	"libraryapi/internal/platform/logging"
	"libraryapi/internal/platform/postgres"
)

func newTestHandler(t *testing.T) (*memStore, *HTTPHandler) {
	t.Helper()
	store := newMemStore()
	store.addBook(bookOne, "Dune", 1)
	return store, NewHTTPHandler(NewService(store), logging.Discard())
}

func asUser(r *http.Request, userID, role string) *http.Request {
	return r.WithContext(httpx.ContextWithIdentity(r.Context(), httpx.Identity{UserID: userID, Role: role}))
}

func postLoan(handler *HTTPHandler, userID, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/loans", strings.NewReader(body))
	handler.CreateLoan(w, asUser(r, userID, "user"))
	return w
}

func putReturn(handler *HTTPHandler, id, userID, role, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPut, "/api/loans/"+id+"/return", strings.NewReader(body))
	r.SetPathValue("id", id)
	handler.ReturnLoan(w, asUser(r, userID, role))
	return w
}

func TestHTTPHandler_CreateLoan(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		_, handler := newTestHandler(t)

		w := postLoan(handler, alice, `{"book_id":"`+bookOne+`","due_date":"2030-01-15"}`)

		assert.Equal(t, http.StatusCreated, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, `"loanId":1`)
		assert.Contains(t, body, `"bookTitle":"Dune"`)
		assert.Contains(t, body, `"userId":"`+alice+`"`)
		assert.Contains(t, body, `"dueDate":"2030-01-15"`)
		assert.Contains(t, body, `"status":"active"`)
		assert.Contains(t, body, `"availableCopies":0`)
	})

	t.Run("no stock carries detail", func(t *testing.T) {
		_, handler := newTestHandler(t)
		require.Equal(t, http.StatusCreated, postLoan(handler, alice, `{"book_id":"`+bookOne+`","due_date":"2030-01-15"}`).Code)

		w := postLoan(handler, bob, `{"book_id":"`+bookOne+`","due_date":"2030-01-15"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		body := w.Body.String()
		assert.Contains(t, body, `"code":"NO_STOCK_AVAILABLE"`)
		assert.Contains(t, body, `"bookId":"`+bookOne+`"`)
		assert.Contains(t, body, `"availableCopies":0`)
	})

	t.Run("unknown book", func(t *testing.T) {
		store, handler := newTestHandler(t)

		w := postLoan(handler, alice, `{"book_id":"`+bookTwo+`","due_date":"2030-01-15"}`)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, 0, store.loanCount())
	})

	t.Run("validation", func(t *testing.T) {
		_, handler := newTestHandler(t)

		w := postLoan(handler, alice, `{"book_id":"not-a-uuid","due_date":"15/01/2030"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), `"field":"book_id"`)
		assert.Contains(t, w.Body.String(), `"field":"due_date"`)
	})

	t.Run("empty body", func(t *testing.T) {
		_, handler := newTestHandler(t)

		w := postLoan(handler, alice, "")

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		_, handler := newTestHandler(t)

		w := httptest.NewRecorder()
		handler.CreateLoan(w, httptest.NewRequest(http.MethodPost, "/api/loans", strings.NewReader(`{}`)))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("store failure is a generic 500", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := NewMockStore(ctrl)
		handler := NewHTTPHandler(NewService(store), logging.Discard())
		store.EXPECT().WithinTx(gomock.Any(), gomock.Any()).Return(postgres.Unavailable(errors.New("dial tcp 10.0.0.5:5432: refused")))

		w := postLoan(handler, alice, `{"book_id":"`+bookOne+`","due_date":"2030-01-15"}`)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "10.0.0.5")
	})
}

func TestHTTPHandler_ReturnLoan(t *testing.T) {
	t.Run("returned then not found", func(t *testing.T) {
		_, handler := newTestHandler(t)
		require.Equal(t, http.StatusCreated, postLoan(handler, alice, `{"book_id":"`+bookOne+`","due_date":"2030-01-15"}`).Code)

		w := putReturn(handler, "1", alice, "user", `{"return_date":"2030-01-10"}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"returned"`)
		assert.Contains(t, w.Body.String(), `"returnDate":"2030-01-10"`)
		assert.Contains(t, w.Body.String(), `"availableCopies":1`)

		w = putReturn(handler, "1", alice, "user", `{"return_date":"2030-01-10"}`)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), `"loanId":1`)
	})

	t.Run("foreign loan", func(t *testing.T) {
		_, handler := newTestHandler(t)
		require.Equal(t, http.StatusCreated, postLoan(handler, alice, `{"book_id":"`+bookOne+`","due_date":"2030-01-15"}`).Code)

		assert.Equal(t, http.StatusNotFound, putReturn(handler, "1", bob, "user", `{"return_date":"2030-01-10"}`).Code)
		assert.Equal(t, http.StatusOK, putReturn(handler, "1", bob, "admin", `{"return_date":"2030-01-10"}`).Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		_, handler := newTestHandler(t)

		assert.Equal(t, http.StatusBadRequest, putReturn(handler, "abc", alice, "user", `{"return_date":"2030-01-10"}`).Code)
		assert.Equal(t, http.StatusBadRequest, putReturn(handler, "0", alice, "user", `{"return_date":"2030-01-10"}`).Code)
	})

	t.Run("missing return date", func(t *testing.T) {
		_, handler := newTestHandler(t)

		w := putReturn(handler, "1", alice, "user", `{}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), `"field":"return_date"`)
	})
}

func TestHTTPHandler_GetMyLoans(t *testing.T) {
	t.Run("empty is an array", func(t *testing.T) {
		_, handler := newTestHandler(t)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/loans/my", nil)
		handler.GetMyLoans(w, asUser(r, alice, "user"))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"data":[]`)
	})

	t.Run("lists own loans", func(t *testing.T) {
		_, handler := newTestHandler(t)
		require.Equal(t, http.StatusCreated, postLoan(handler, alice, `{"book_id":"`+bookOne+`","due_date":"2030-01-15"}`).Code)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/loans/my", nil)
		handler.GetMyLoans(w, asUser(r, alice, "user"))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"bookTitle":"Dune"`)
		assert.Contains(t, w.Body.String(), `"returnDate":null`)

		w = httptest.NewRecorder()
		handler.GetMyLoans(w, asUser(httptest.NewRequest(http.MethodGet, "/api/loans/my", nil), bob, "user"))
		assert.Contains(t, w.Body.String(), `"data":[]`)
	})
}

func TestHTTPHandler_ListOverdue(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := NewMockStore(ctrl)
	svc := NewService(store)
	svc.now = func() time.Time { return time.Date(2030, 2, 1, 9, 0, 0, 0, time.UTC) }
	handler := NewHTTPHandler(svc, logging.Discard())

	t.Run("defaults to today", func(t *testing.T) {
		store.EXPECT().ListOverdue(gomock.Any(), time.Date(2030, 2, 1, 0, 0, 0, 0, time.UTC)).
			Return([]Loan{{ID: 3, BookTitle: "Dune", DueDate: NewDate(due)}}, nil)

		w := httptest.NewRecorder()
		handler.ListOverdue(w, httptest.NewRequest(http.MethodGet, "/api/loans/overdue", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"loanId":3`)
		assert.Contains(t, w.Body.String(), `"as_of":"2030-02-01"`)
	})

	t.Run("explicit as_of", func(t *testing.T) {
		store.EXPECT().ListOverdue(gomock.Any(), time.Date(2030, 6, 1, 0, 0, 0, 0, time.UTC)).Return(nil, nil)

		w := httptest.NewRecorder()
		handler.ListOverdue(w, httptest.NewRequest(http.MethodGet, "/api/loans/overdue?as_of=2030-06-01", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"count":0`)
	})

	t.Run("invalid as_of", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ListOverdue(w, httptest.NewRequest(http.MethodGet, "/api/loans/overdue?as_of=tomorrow", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("store failure", func(t *testing.T) {
		store.EXPECT().ListOverdue(gomock.Any(), gomock.Any()).Return(nil, context.DeadlineExceeded)

		w := httptest.NewRecorder()
		handler.ListOverdue(w, httptest.NewRequest(http.MethodGet, "/api/loans/overdue", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
