package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"libraryapi/internal/auth"
	"libraryapi/internal/author"
	"libraryapi/internal/book"
	"libraryapi/internal/config"
	"libraryapi/internal/httpx"
	"libraryapi/internal/loan"
	"libraryapi/internal/session"
	"libraryapi/internal/user"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type handlers struct {
	auth     *auth.HTTPHandler
	users    *user.HTTPHandler
	sessions *session.HTTPHandler
	authors  *author.HTTPHandler
	books    *book.HTTPHandler
	loans    *loan.HTTPHandler
}

type server struct {
	cfg     config.Config
	logger  *slog.Logger
	db      pinger
	tokens  httpx.TokenParser
	limiter *httpx.RateLimitMiddleware
	h       handlers
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()

	authed := func(f http.HandlerFunc) http.Handler {
		return httpx.Chain(f, httpx.AuthMiddleware(s.tokens))
	}
	admin := func(f http.HandlerFunc) http.Handler {
		return httpx.Chain(f, httpx.AuthMiddleware(s.tokens), httpx.RequireRole(user.RoleAdmin))
	}
	optional := func(f http.HandlerFunc) http.Handler {
		return httpx.Chain(f, httpx.OptionalAuthMiddleware(s.tokens))
	}

	mux.HandleFunc("GET /{$}", s.banner)
	mux.HandleFunc("GET /healthz", s.healthz)
	mux.HandleFunc("GET /readyz", s.readyz)

	mux.Handle("POST /api/auth/register", optional(s.h.auth.Register))
	mux.HandleFunc("POST /api/auth/login", s.h.auth.Login)
	mux.HandleFunc("POST /api/auth/refresh", s.h.auth.Refresh)
	mux.HandleFunc("POST /api/auth/logout", s.h.auth.Logout)

	mux.Handle("GET /api/me", authed(s.h.users.GetCurrentUser))
	mux.Handle("GET /api/me/sessions", authed(s.h.sessions.ListSessions))
	mux.Handle("DELETE /api/me/sessions/{id}", authed(s.h.sessions.DeleteSession))

	mux.Handle("GET /api/authors", authed(s.h.authors.List))
	mux.Handle("GET /api/authors/{id}", authed(s.h.authors.Get))
	mux.Handle("POST /api/authors", admin(s.h.authors.Create))
	mux.Handle("PUT /api/authors/{id}", admin(s.h.authors.Update))
	mux.Handle("DELETE /api/authors/{id}", admin(s.h.authors.Delete))

	mux.HandleFunc("GET /api/books", s.h.books.List)
	mux.HandleFunc("GET /api/books/{id}", s.h.books.Get)
	mux.Handle("POST /api/books", admin(s.h.books.Create))
	mux.Handle("PUT /api/books/{id}", admin(s.h.books.Update))
	mux.Handle("DELETE /api/books/{id}", admin(s.h.books.Delete))

	mux.Handle("POST /api/loans", authed(s.h.loans.CreateLoan))
	mux.Handle("PUT /api/loans/{id}/return", authed(s.h.loans.ReturnLoan))
	mux.Handle("GET /api/loans/my", authed(s.h.loans.GetMyLoans))
	mux.Handle("GET /api/loans/overdue", admin(s.h.loans.ListOverdue))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	})

	return httpx.Chain(mux,
		httpx.RequestIDMiddleware,
		httpx.AccessLogMiddleware(s.logger),
		httpx.RecoveryMiddleware(s.logger),
		httpx.SecurityHeadersMiddleware(s.cfg.EnableHSTS),
		httpx.CORSMiddleware(s.cfg.AllowedOrigins),
		s.limiter.Middleware,
		httpx.RequestSizeLimitMiddleware(s.cfg.MaxBodyBytes),
	)
}

func (s *server) banner(w http.ResponseWriter, r *http.Request) {
	httpx.JSONSuccess(w, r, map[string]string{
		"service": "libraryapi",
		"docs":    "/api",
	}, nil)
}

func (s *server) healthz(w http.ResponseWriter, r *http.Request) {
	httpx.JSONSuccess(w, r, map[string]string{"status": "ok"}, nil)
}

func (s *server) readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
	defer cancel()
	if err := s.db.Ping(ctx); err != nil {
		s.logger.Warn("readiness check failed", "error", err)
		httpx.JSONError(w, r, http.StatusServiceUnavailable, "NOT_READY", "Database not ready", nil)
		return
	}
	httpx.JSONSuccess(w, r, map[string]string{"status": "ready"}, nil)
}
