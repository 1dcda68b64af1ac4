// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the "wiring" layer — it connects handlers, middleware, and
// routes, and owns the server lifecycle (start, graceful shutdown). All
// dependencies are assembled here, in one place, rather than scattered
// across the codebase.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/github-users/internal/auth"
	"github.com/sakif/github-users/internal/handler"
	"github.com/sakif/github-users/internal/middleware"
	"github.com/sakif/github-users/internal/service"
	"github.com/sakif/github-users/internal/store"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Config holds server configuration.
type Config struct {
	Port int

	// Access-gate credentials. Exactly one of Password / PasswordHash is
	// set: a bcrypt hash takes precedence so the plaintext never has to
	// appear in the environment.
	Username     string
	Password     string
	PasswordHash string

	// TokenSecret enables the bearer-token scheme when non-empty.
	TokenSecret string
}

// Server is the query service: the HTTP server and all its dependencies.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	users  *service.UserService
}

// New wires the full dependency chain:
//
//	snapshot store → UserService → UserHandler → routes
//
// and performs the initial catalog load. A missing or unreadable filtered
// snapshot fails startup — a query service with nothing to serve should not
// come up and pretend otherwise.
func New(cfg Config, snapshots store.SnapshotStore, logger *slog.Logger) (*Server, error) {
	users := service.NewUserService(snapshots, logger)
	if err := users.Reload(context.Background()); err != nil {
		return nil, fmt.Errorf("initial catalog load: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		users:  users,
	}

	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	GET  /                   → health check (ungated)
//	POST /auth/token         → issue bearer token (gated, if configured)
//	GET  /users/             → list all records (gated)
//	GET  /users/search?q=    → substring search (gated)
//	GET  /users/{login}      → single record (gated)
//	POST /admin/reload       → atomic catalog reload (gated)
//
// chi matches static segments before wildcards, so /users/search is routed
// to the search handler, never captured as {login}.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	// === ACCESS GATE ===
	var verifier auth.Verifier
	if s.config.PasswordHash != "" {
		verifier = auth.NewBcryptVerifier(s.config.Username, s.config.PasswordHash)
	} else {
		verifier = auth.NewStaticVerifier(s.config.Username, s.config.Password)
	}

	var tokens *auth.TokenService
	if s.config.TokenSecret != "" {
		var err error
		tokens, err = auth.NewTokenService(s.config.TokenSecret)
		if err != nil {
			return fmt.Errorf("creating token service: %w", err)
		}
	}
	gate := auth.NewGate(verifier, tokens, s.logger)

	userHandler := handler.NewUserHandler(s.users, s.logger)

	// Health check stays outside the gate so load balancers can probe it.
	s.router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"healthy","version":%q}`, Version)
	})

	s.router.Group(func(r chi.Router) {
		r.Use(gate.Require)

		r.Get("/users/", userHandler.HandleList)
		r.Get("/users/search", userHandler.HandleSearch)
		r.Get("/users/{login}", userHandler.HandleGet)

		r.Post("/admin/reload", userHandler.HandleReload)

		if tokens != nil {
			tokenHandler := handler.NewTokenHandler(tokens, s.logger)
			r.Post("/auth/token", tokenHandler.HandleIssue)
		}
	})

	return nil
}

// Router exposes the configured router, for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, give in-flight requests 30
// seconds to finish.
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
