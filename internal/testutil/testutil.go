// Package testutil holds helpers shared by handler and integration tests.
package testutil

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	jsoniter "github.com/json-iterator/go"

	"libraryapi/internal/platform/crypto"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Pool connects to TEST_DB_DSN. The test is skipped when the variable is
// unset, the database is unreachable or the schema has not been migrated.
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Skipf("Skipping integration test: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("Skipping integration test (db unreachable): %v", err)
	}
	var exists bool
	if err := pool.QueryRow(ctx, "SELECT to_regclass('public.loans') IS NOT NULL").Scan(&exists); err != nil || !exists {
		pool.Close()
		t.Skip("Skipping integration test (schema not migrated)")
	}
	t.Cleanup(pool.Close)
	return pool
}

// SeedBook inserts an author and a book with the given number of copies and
// removes both, with their loans, when the test ends.
func SeedBook(t *testing.T, pool *pgxpool.Pool, title string, copies int) string {
	t.Helper()
	ctx := context.Background()

	var authorID, bookID string
	if err := pool.QueryRow(ctx, `INSERT INTO authors (name) VALUES ($1) RETURNING id`, title+" Author").Scan(&authorID); err != nil {
		t.Fatalf("seed author: %v", err)
	}
	err := pool.QueryRow(ctx,
		`INSERT INTO books (id, title, author_id, publish_year, copies) VALUES (gen_random_uuid(), $1, $2, 2001, $3) RETURNING id`,
		title, authorID, copies).Scan(&bookID)
	if err != nil {
		t.Fatalf("seed book: %v", err)
	}

	t.Cleanup(func() {
		ctx := context.Background()
		_, _ = pool.Exec(ctx, `DELETE FROM loans WHERE book_id = $1`, bookID)
		_, _ = pool.Exec(ctx, `DELETE FROM books WHERE id = $1`, bookID)
		_, _ = pool.Exec(ctx, `DELETE FROM authors WHERE id = $1`, authorID)
	})
	return bookID
}

// SeedUser inserts a user and removes it when the test ends.
func SeedUser(t *testing.T, pool *pgxpool.Pool, email, role string) string {
	t.Helper()
	var id string
	err := pool.QueryRow(context.Background(),
		`INSERT INTO users (name, email, password_hash, role) VALUES ($1, $2, 'x', $3) RETURNING id`,
		email, email, role).Scan(&id)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	t.Cleanup(func() {
		ctx := context.Background()
		_, _ = pool.Exec(ctx, `DELETE FROM loans WHERE user_id = $1`, id)
		_, _ = pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	})
	return id
}

// AccessToken signs a valid access token for userID.
func AccessToken(secret, userID, role string) string {
	token, _, _ := crypto.GenerateToken(secret, userID, role, time.Hour)
	return token
}

// ExpiredAccessToken signs an access token that expired an hour ago.
func ExpiredAccessToken(secret, userID, role string) string {
	c := crypto.Claims{
		Sub:  userID,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		},
	}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(secret))
	return token
}

// NewRequest builds a request with body encoded as JSON. A nil body sends none.
func NewRequest(method, path string, body any) *http.Request {
	if body == nil {
		return httptest.NewRequest(method, path, nil)
	}
	data, _ := json.Marshal(body)
	r := httptest.NewRequest(method, path, bytes.NewReader(data))
	r.Header.Set("Content-Type", "application/json")
	return r
}

// NewRequestWithAuth is NewRequest with a bearer token.
func NewRequestWithAuth(method, path string, body any, token string) *http.Request {
	r := NewRequest(method, path, body)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	return r
}

// Response is a recorded response with its JSON envelope decoded.
type Response struct {
	Code   int
	Header http.Header
	Body   map[string]any
}

func (r Response) Data() map[string]any {
	data, _ := r.Body["data"].(map[string]any)
	return data
}

func (r Response) ErrorCode() string {
	errBody, _ := r.Body["error"].(map[string]any)
	code, _ := errBody["code"].(string)
	return code
}

// Record decodes a recorded response.
func Record(w *httptest.ResponseRecorder) Response {
	result := w.Result()
	defer result.Body.Close()

	data, _ := io.ReadAll(result.Body)
	var body map[string]any
	if len(data) > 0 {
		_ = json.Unmarshal(data, &body)
	}
	return Response{Code: result.StatusCode, Header: result.Header, Body: body}
}
