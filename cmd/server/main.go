// Package main is the entry point for the user query service.
//
// The main package stays minimal: read configuration from the environment,
// create dependencies, start the server. All actual logic lives in the
// internal packages.
//
// CONFIGURATION (environment variables):
//
//	PORT                 — listen port (default 8080)
//	STORE                — snapshot backend: "file" (default) or "sqlite"
//	DATA_DIR             — snapshot directory for the file store (default "data")
//	DB_PATH              — database path for the sqlite store (default "data/users.db")
//	BASIC_AUTH_USER      — access-gate username (required)
//	BASIC_AUTH_PASS      — access-gate password (plaintext)
//	BASIC_AUTH_PASS_HASH — access-gate password as a bcrypt hash; takes
//	                       precedence over BASIC_AUTH_PASS
//	TOKEN_SECRET         — enables POST /auth/token + bearer auth when set
//
// The credentials and token secret are opaque secrets injected at startup —
// they are never logged.
package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sakif/github-users/internal/server"
	"github.com/sakif/github-users/internal/store"
	filestore "github.com/sakif/github-users/internal/store/file"
	sqlitestore "github.com/sakif/github-users/internal/store/sqlite"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	port := 8080
	if portStr := os.Getenv("PORT"); portStr != "" {
		var err error
		port, err = strconv.Atoi(portStr)
		if err != nil {
			logger.Error("invalid PORT value", slog.String("value", portStr))
			os.Exit(1)
		}
	}

	username := os.Getenv("BASIC_AUTH_USER")
	password := os.Getenv("BASIC_AUTH_PASS")
	passwordHash := os.Getenv("BASIC_AUTH_PASS_HASH")
	if username == "" || (password == "" && passwordHash == "") {
		logger.Error("BASIC_AUTH_USER and BASIC_AUTH_PASS (or BASIC_AUTH_PASS_HASH) must be set")
		os.Exit(1)
	}

	snapshots, cleanup, err := openSnapshotStore(logger)
	if err != nil {
		logger.Error("failed to open snapshot store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer cleanup()

	cfg := server.Config{
		Port:         port,
		Username:     username,
		Password:     password,
		PasswordHash: passwordHash,
		TokenSecret:  os.Getenv("TOKEN_SECRET"),
	}

	srv, err := server.New(cfg, snapshots, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
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
		// Ensure the parent directory exists (like `mkdir -p`).
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
