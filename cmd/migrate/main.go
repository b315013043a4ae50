package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"libraryapi/internal/platform/logging"
	"libraryapi/internal/platform/postgres"
)

var errUsage = errors.New("usage: migrate -command up|down|status|version|create [-name NAME]")

func main() {
	var (
		command = flag.String("command", "up", "Migration command: up, down, status, version, create")
		name    = flag.String("name", "", "Name for 'create' command")
	)
	flag.Parse()

	logger := logging.New(os.Stdout, os.Getenv("LOG_LEVEL"), "text")
	if err := run(*command, *name, loadMigrateConfig(), logger); err != nil {
		logger.Error("migrate failed", "command", *command, "error", err)
		os.Exit(1)
	}
}

func run(command, name string, cfg migrateConfig, logger *slog.Logger) error {
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	if command == "create" {
		if name == "" {
			return fmt.Errorf("name is required for 'create': %w", errUsage)
		}
		if err := goose.Create(nil, cfg.dir, name, "sql"); err != nil {
			return fmt.Errorf("create migration: %w", err)
		}
		logger.Info("migration created", "name", name, "dir", cfg.dir)
		return nil
	}

	migrate, ok := commands[command]
	if !ok {
		return fmt.Errorf("unknown command %q: %w", command, errUsage)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := postgres.Open(ctx, postgres.PoolConfig{DSN: cfg.dsn, MaxConns: 2})
	if err != nil {
		return err
	}
	defer pool.Close()

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	if err := migrate(ctx, db, cfg.dir); err != nil {
		return fmt.Errorf("%s: %w", command, err)
	}

	version, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	logger.Info("migrations done", "command", command, "version", version, "db", postgres.RedactDSN(cfg.dsn))
	return nil
}

var commands = map[string]func(ctx context.Context, db *sql.DB, dir string) error{
	"up": func(ctx context.Context, db *sql.DB, dir string) error {
		return goose.UpContext(ctx, db, dir)
	},
	"down": func(ctx context.Context, db *sql.DB, dir string) error {
		return goose.DownContext(ctx, db, dir)
	},
	"status": func(ctx context.Context, db *sql.DB, dir string) error {
		migrations, err := goose.CollectMigrations(dir, 0, goose.MaxVersion)
		if err != nil {
			return err
		}
		current, err := goose.GetDBVersionContext(ctx, db)
		if err != nil {
			return err
		}
		for _, m := range migrations {
			state := "pending"
			if m.Version <= current {
				state = "applied"
			}
			fmt.Printf("%-8s %s\n", state, m.Source)
		}
		return nil
	},
	"version": func(ctx context.Context, db *sql.DB, dir string) error {
		return nil
	},
}
