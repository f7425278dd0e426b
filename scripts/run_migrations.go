package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	_ "github.com/lib/pq"
	"github.com/safar/storefront/internal/config"
	"github.com/safar/storefront/internal/logging"
	"go.uber.org/zap"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: go run scripts/run_migrations.go [up|down]")
		os.Exit(2)
	}

	direction := os.Args[1]
	if direction != "up" && direction != "down" {
		fmt.Fprintln(os.Stderr, "direction must be 'up' or 'down'")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Environment)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		logger.Fatal("connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatal("ping database", zap.Error(err))
	}

	files, err := migrationFiles("migrations", direction)
	if err != nil {
		logger.Fatal("read migration directory", zap.Error(err))
	}

	for _, path := range files {
		content, err := os.ReadFile(path)
		if err != nil {
			logger.Fatal("read migration file", zap.String("file", path), zap.Error(err))
		}

		logger.Info("running migration", zap.String("file", filepath.Base(path)))
		if _, err := db.Exec(string(content)); err != nil {
			logger.Fatal("execute migration", zap.String("file", path), zap.Error(err))
		}
	}

	logger.Info("migrations applied",
		zap.Int("count", len(files)),
		zap.String("direction", direction))
}

// migrationFiles lists the migrations for direction in apply order: ascending
// for up, descending for down.
func migrationFiles(dir, direction string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	suffix := "." + direction + ".sql"
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), suffix) {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}

	slices.Sort(files)
	if direction == "down" {
		slices.Reverse(files)
	}
	return files, nil
}
