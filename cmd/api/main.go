package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"libraryapi/internal/auth"
	"libraryapi/internal/author"
	"libraryapi/internal/book"
	"libraryapi/internal/config"
	"libraryapi/internal/httpx"
	"libraryapi/internal/loan"
	"libraryapi/internal/maintenance"
	"libraryapi/internal/platform/crypto"
	"libraryapi/internal/platform/logging"
	"libraryapi/internal/platform/postgres"
	"libraryapi/internal/session"
	"libraryapi/internal/user"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.Open(ctx, postgres.PoolConfig{
		DSN:            cfg.DatabaseDSN,
		MaxConns:       cfg.DBMaxConns,
		ConnectTimeout: 5 * time.Second,
	})
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info("database connection OK", "db", postgres.RedactDSN(cfg.DatabaseDSN))

	tokens := crypto.NewTokenService(cfg.AccessTokenSecret, cfg.AccessTokenTTL)

	userService := user.NewService(user.NewPostgresRepo(pool, cfg.DBQueryTimeout))
	sessionService := session.NewService(session.NewPostgresRepo(pool, cfg.DBQueryTimeout), cfg.RefreshTokenTTL)
	authService := auth.NewService(userService, sessionService, tokens)
	authorService := author.NewService(author.NewPostgresRepo(pool, cfg.DBQueryTimeout))
	bookService := book.NewService(book.NewPostgresRepo(pool, cfg.DBQueryTimeout))
	loanService := loan.NewService(loan.NewPostgresStore(pool, cfg.DBTxTimeout, cfg.DBQueryTimeout))

	limiter := httpx.NewRateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go limiter.Run(ctx)

	scheduler := maintenance.NewScheduler(sessionService, loanService, logger)
	if err := scheduler.Start(cfg.MaintenanceSchedule); err != nil {
		return err
	}

	srv := &server{
		cfg:     cfg,
		logger:  logger,
		db:      pool,
		tokens:  tokens,
		limiter: limiter,
		h: handlers{
			auth:     auth.NewHTTPHandler(authService, logger),
			users:    user.NewHTTPHandler(userService, logger),
			sessions: session.NewHTTPHandler(sessionService, logger),
			authors:  author.NewHTTPHandler(authorService, logger),
			books:    book.NewHTTPHandler(bookService, logger),
			loans:    loan.NewHTTPHandler(loanService, logger),
		},
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	scheduler.Stop(shutdownCtx)
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
