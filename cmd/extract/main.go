// Package main is the entry point for the extraction batch job.
//
// The job runs the full offline pipeline and exits:
//
//	extract (GitHub API) → raw snapshot → filter/dedup → filtered snapshot
//
// The query service (cmd/server) never runs any of this — extraction's
// blocking rate-limit waits must never happen on a request path, so the two
// lifecycles are separate binaries.
//
// CONFIGURATION (environment variables):
//
//	GITHUB_TOKEN      — GitHub API token (required; never logged)
//	MAX_RECORDS       — extraction cap (default 3000)
//	PAGE_SIZE         — records per page (default 100)
//	REQUEST_DELAY_MS  — minimum spacing between page fetches (default 1000)
//	STORE             — snapshot backend: "file" (default) or "sqlite"
//	DATA_DIR          — snapshot directory for the file store (default "data")
//	DB_PATH           — database path for the sqlite store (default "data/users.db")
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/sakif/github-users/internal/extract"
	"github.com/sakif/github-users/internal/filter"
	"github.com/sakif/github-users/internal/source"
	"github.com/sakif/github-users/internal/store"
	filestore "github.com/sakif/github-users/internal/store/file"
	sqlitestore "github.com/sakif/github-users/internal/store/sqlite"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		logger.Error("GITHUB_TOKEN must be set")
		os.Exit(1)
	}

	opts := extract.Options{
		MaxRecords:       envInt(logger, "MAX_RECORDS", extract.DefaultMaxRecords),
		PageSize:         envInt(logger, "PAGE_SIZE", extract.DefaultPageSize),
		InterRequestWait: time.Duration(envInt(logger, "REQUEST_DELAY_MS", 1000)) * time.Millisecond,
	}

	snapshots, cleanup, err := openSnapshotStore(logger)
	if err != nil {
		logger.Error("failed to open snapshot store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer cleanup()

	// Ctrl+C / SIGTERM cancels the run between page fetches. A cancelled run
	// publishes nothing — partial datasets are discarded, not saved.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// === EXTRACT ===
	src := source.NewGitHubSource(token, logger)
	extractor := extract.New(src, opts, logger)

	raw, err := extractor.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("extraction cancelled, discarding partial dataset")
			os.Exit(1)
		}
		logger.Error("extraction failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := snapshots.Save(ctx, store.SnapshotRaw, raw); err != nil {
		logger.Error("failed to save raw snapshot", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("raw snapshot saved", slog.Int("records", len(raw)))

	// === FILTER ===
	filtered, stats := filter.Apply(raw, filter.DefaultRules())

	if err := snapshots.Save(ctx, store.SnapshotFiltered, filtered); err != nil {
		logger.Error("failed to save filtered snapshot", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("filtered snapshot saved",
		slog.Int("total", stats.Total),
		slog.Int("rejected", stats.Rejected),
		slog.Int("duplicates", stats.Duplicates),
		slog.Int("kept", stats.Kept),
	)
}

// envInt reads an integer environment variable, falling back to def.
func envInt(logger *slog.Logger, name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.Error("invalid integer value",
			slog.String("var", name),
			slog.String("value", v),
		)
		os.Exit(1)
	}
	return n
}

// openSnapshotStore builds the snapshot backend selected by STORE.
// The returned cleanup closes backends that hold resources (sqlite).
func openSnapshotStore(logger *slog.Logger) (store.SnapshotStore, func(), error) {
	switch backend := os.Getenv("STORE"); backend {
	case "", "file":
		dataDir := os.Getenv("DATA_DIR")
		if dataDir == "" {
			dataDir = "data"
		}
		s, err := filestore.New(dataDir)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using file snapshot store", slog.String("dir", dataDir))
		return s, func() {}, nil

	case "sqlite":
		dbPath := os.Getenv("DB_PATH")
		if dbPath == "" {
			dbPath = "data/users.db"
		}
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, nil, err
		}
		s, err := sqlitestore.New(dbPath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using sqlite snapshot store", slog.String("path", dbPath))
		return s, func() { s.Close() }, nil

	default:
		logger.Error("unknown STORE value", slog.String("value", backend))
		os.Exit(1)
		return nil, nil, nil // unreachable
	}
}
