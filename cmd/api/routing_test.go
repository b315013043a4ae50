package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libraryapi/internal/auth"
	"libraryapi/internal/author"
	"libraryapi/internal/book"
	"libraryapi/internal/config"
	"libraryapi/internal/httpx"
	"libraryapi/internal/loan"
	"libraryapi/internal/platform/crypto"
	"libraryapi/internal/platform/logging"
	"libraryapi/internal/session"
	"libraryapi/internal/testutil"
	"libraryapi/internal/user"
)

const testSecret = "routing-test-secret"

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type routeMocks struct {
	books *book.MockRepository
	loans *loan.MockStore
}

func newTestServer(t *testing.T, db pinger) (http.Handler, routeMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)
	logger := logging.Discard()

	m := routeMocks{
		books: book.NewMockRepository(ctrl),
		loans: loan.NewMockStore(ctrl),
	}
	tokens := crypto.NewTokenService(testSecret, time.Hour)
	userService := user.NewService(user.NewMockRepository(ctrl))
	sessionService := session.NewService(session.NewMockRepository(ctrl), time.Hour)

	srv := &server{
		cfg:     config.Config{MaxBodyBytes: 1 << 20, AllowedOrigins: []string{"http://app.test"}},
		logger:  logger,
		db:      db,
		tokens:  tokens,
		limiter: httpx.NewRateLimitMiddleware(1000, 1000),
		h: handlers{
			auth:     auth.NewHTTPHandler(auth.NewService(userService, sessionService, tokens), logger),
			users:    user.NewHTTPHandler(userService, logger),
			sessions: session.NewHTTPHandler(sessionService, logger),
			authors:  author.NewHTTPHandler(author.NewService(author.NewMockRepository(ctrl)), logger),
			books:    book.NewHTTPHandler(book.NewService(m.books), logger),
			loans:    loan.NewHTTPHandler(loan.NewService(m.loans), logger),
		},
	}
	return srv.routes(), m
}

func serve(h http.Handler, r *http.Request) testutil.Response {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return testutil.Record(w)
}

func TestRoutes_Ops(t *testing.T) {
	h, _ := newTestServer(t, fakePinger{})

	res := serve(h, testutil.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "libraryapi", res.Data()["service"])
	assert.NotEmpty(t, res.Header.Get("X-Request-Id"))
	assert.Equal(t, "nosniff", res.Header.Get("X-Content-Type-Options"))

	assert.Equal(t, http.StatusOK, serve(h, testutil.NewRequest(http.MethodGet, "/healthz", nil)).Code)
	assert.Equal(t, http.StatusOK, serve(h, testutil.NewRequest(http.MethodGet, "/readyz", nil)).Code)

	res = serve(h, testutil.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.Equal(t, "NOT_FOUND", res.ErrorCode())
}

func TestRoutes_ReadyzReportsDatabase(t *testing.T) {
	h, _ := newTestServer(t, fakePinger{err: errors.New("connection refused")})

	res := serve(h, testutil.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, res.Code)
	assert.Equal(t, "NOT_READY", res.ErrorCode())
}

func TestRoutes_AuthGating(t *testing.T) {
	h, _ := newTestServer(t, fakePinger{})
	userToken := testutil.AccessToken(testSecret, "11111111-1111-1111-1111-111111111111", user.RoleUser)

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"loans need a token", http.MethodPost, "/api/loans", "", http.StatusUnauthorized},
		{"my loans need a token", http.MethodGet, "/api/loans/my", "", http.StatusUnauthorized},
		{"return needs a token", http.MethodPut, "/api/loans/1/return", "", http.StatusUnauthorized},
		{"expired token", http.MethodGet, "/api/loans/my", testutil.ExpiredAccessToken(testSecret, "u", user.RoleUser), http.StatusUnauthorized},
		{"overdue is admin only", http.MethodGet, "/api/loans/overdue", userToken, http.StatusForbidden},
		{"book create is admin only", http.MethodPost, "/api/books", userToken, http.StatusForbidden},
		{"book delete is admin only", http.MethodDelete, "/api/books/0b7a5c52-6f0e-4a8e-9d0c-3f1b2a4c5d6e", userToken, http.StatusForbidden},
		{"author create is admin only", http.MethodPost, "/api/authors", userToken, http.StatusForbidden},
		{"authors need a token", http.MethodGet, "/api/authors", "", http.StatusUnauthorized},
		{"me needs a token", http.MethodGet, "/api/me", "", http.StatusUnauthorized},
		{"sessions need a token", http.MethodGet, "/api/me/sessions", "", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := serve(h, testutil.NewRequestWithAuth(tc.method, tc.path, nil, tc.token))
			assert.Equal(t, tc.want, res.Code)
		})
	}
}

func TestRoutes_PublicBookList(t *testing.T) {
	h, m := newTestServer(t, fakePinger{})
	m.books.EXPECT().List(gomock.Any(), gomock.Any()).Return([]book.Book{{ID: "b-1", Title: "Dune", Copies: 2, AvailableCopies: 1}}, 1, nil)

	res := serve(h, testutil.NewRequest(http.MethodGet, "/api/books", nil))
	assert.Equal(t, http.StatusOK, res.Code)
	require.NotNil(t, res.Body["data"])
}

func TestRoutes_MyLoansWithToken(t *testing.T) {
	h, m := newTestServer(t, fakePinger{})
	userID := "11111111-1111-1111-1111-111111111111"
	m.loans.EXPECT().ListByUser(gomock.Any(), userID).Return(nil, nil)

	res := serve(h, testutil.NewRequestWithAuth(http.MethodGet, "/api/loans/my", nil, testutil.AccessToken(testSecret, userID, user.RoleUser)))
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, []any{}, res.Body["data"])
}

func TestRoutes_AdminOverdue(t *testing.T) {
	h, m := newTestServer(t, fakePinger{})
	m.loans.EXPECT().ListOverdue(gomock.Any(), gomock.Any()).Return([]loan.Loan{}, nil)

	res := serve(h, testutil.NewRequestWithAuth(http.MethodGet, "/api/loans/overdue", nil,
		testutil.AccessToken(testSecret, "22222222-2222-2222-2222-222222222222", user.RoleAdmin)))
	assert.Equal(t, http.StatusOK, res.Code)
}

func TestRoutes_CORSPreflight(t *testing.T) {
	h, _ := newTestServer(t, fakePinger{})

	r := testutil.NewRequest(http.MethodOptions, "/api/loans", nil)
	r.Header.Set("Origin", "http://app.test")
	res := serve(h, r)

	assert.Equal(t, http.StatusNoContent, res.Code)
	assert.Equal(t, "http://app.test", res.Header.Get("Access-Control-Allow-Origin"))
}
