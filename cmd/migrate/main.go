// Command migrate applies SQL migrations in filename order.
// 適用済みのファイル名は schema_migrations に記録され、二重適用しない。
package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"

	"github.com/surveyops/backend/internal/logging"
	"github.com/surveyops/backend/internal/repository"
)

func main() {
	_ = godotenv.Load()
	logging.Setup("surveyops-migrate")

	ctx := context.Background()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		logging.Fatal("DATABASE_URL is required")
	}
	dir := "migrations"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		logging.Fatal("failed to connect to database", "error", err)
	}
	defer pool.Close()

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		logging.Fatal("failed to create schema_migrations", "error", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		logging.Fatal("failed to read migrations directory", "dir", dir, "error", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".up.sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	applied := 0
	for _, name := range files {
		var exists bool
		err := pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE filename = $1)`, name).Scan(&exists)
		if err != nil {
			logging.Fatal("failed to check migration state", "file", name, "error", err)
		}
		if exists {
			continue
		}

		sql, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logging.Fatal("failed to read migration", "file", name, "error", err)
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			logging.Fatal("failed to begin transaction", "file", name, "error", err)
		}
		if _, err := tx.Exec(ctx, string(sql)); err != nil {
			_ = tx.Rollback(ctx)
			logging.Fatal("migration failed", "file", name, "error", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO schema_migrations (filename) VALUES ($1)`, name); err != nil {
			_ = tx.Rollback(ctx)
			logging.Fatal("failed to record migration", "file", name, "error", err)
		}
		if err := tx.Commit(ctx); err != nil {
			logging.Fatal("failed to commit migration", "file", name, "error", err)
		}

		slog.Info("applied migration", "file", name)
		applied++
	}

	slog.Info("migrations complete", "applied", applied, "total", len(files))
}
