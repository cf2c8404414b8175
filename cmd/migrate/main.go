package main

import (
	"bufio"
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"lendfi/internal/config"
	"lendfi/internal/db"
	"lendfi/internal/logger"

	"go.uber.org/zap"
)

const downMarker = "-- +migrate Down"

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func main() {
	dir := flag.String("dir", "migrations", "directory holding *.sql migrations")
	flag.Parse()

	cfg := config.Load()
	log, err := logger.New(cfg.LogLevel, cfg.AppEnv)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to connect database", zap.Error(err))
	}
	defer database.Close()

	if _, err := database.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (filename text PRIMARY KEY, applied_at timestamptz DEFAULT now())`); err != nil {
		log.Fatal("failed to ensure schema_migrations", zap.Error(err))
	}

	files, err := filepath.Glob(filepath.Join(*dir, "*.sql"))
	if err != nil {
		log.Fatal("failed to read migrations", zap.Error(err))
	}
	sort.Strings(files)

	applied := 0
	for _, file := range files {
		filename := filepath.Base(file)
		var exists bool
		if err := database.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE filename = $1)`, filename); err != nil {
			log.Fatal("failed to read migration state", zap.Error(err))
		}
		if exists {
			continue
		}
		content, err := os.ReadFile(file)
		if err != nil {
			log.Fatal("failed to read migration", zap.String("file", filename), zap.Error(err))
		}
		tx, err := database.BeginTxx(ctx, nil)
		if err != nil {
			log.Fatal("failed to begin migration", zap.Error(err))
		}
		if err := apply(ctx, tx, string(content)); err != nil {
			_ = tx.Rollback()
			log.Fatal("failed to apply migration", zap.String("file", filename), zap.Error(err))
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (filename) VALUES ($1)`, filename); err != nil {
			_ = tx.Rollback()
			log.Fatal("failed to record migration", zap.String("file", filename), zap.Error(err))
		}
		if err := tx.Commit(); err != nil {
			log.Fatal("failed to commit migration", zap.String("file", filename), zap.Error(err))
		}
		applied++
		log.Info("applied migration", zap.String("file", filename))
	}
	log.Info("migrations complete", zap.Int("applied", applied), zap.Int("total", len(files)))
}

func apply(ctx context.Context, db execer, content string) error {
	for i, stmt := range upStatements(content) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("statement %d: %w", i+1, err)
		}
	}
	return nil
}

// upStatements returns the statements above the down marker, split on lines
// ending a statement with ";". Comment lines are dropped.
func upStatements(content string) []string {
	up, _, _ := strings.Cut(content, downMarker)
	var statements []string
	var current strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(up))
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		current.WriteString(line)
		current.WriteRune('\n')
		if strings.HasSuffix(strings.TrimSpace(line), ";") {
			statements = append(statements, current.String())
			current.Reset()
		}
	}
	if strings.TrimSpace(current.String()) != "" {
		statements = append(statements, current.String())
	}
	return statements
}
