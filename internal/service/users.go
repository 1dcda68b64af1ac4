// Package service contains the business logic layer of the query service.
//
// The layering follows the usual three-layer split:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (business layer) → owns the active catalog, validates, reloads
//	Catalog (data layer)     → in-memory index over one snapshot
//
// The service's one piece of mutable state is the pointer to the active
// catalog. Everything else is read-only.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/sakif/github-users/internal/catalog"
	"github.com/sakif/github-users/internal/model"
	"github.com/sakif/github-users/internal/store"
)

// ErrNotLoaded is returned when a query arrives before the first successful
// snapshot load. Server startup loads the catalog before accepting traffic,
// so in practice this only surfaces in misassembled tests.
var ErrNotLoaded = errors.New("catalog not loaded")

// UserService answers queries against the active catalog and handles
// catalog reloads.
//
// SNAPSHOT SWAP ATOMICITY:
// current is an atomic.Pointer. A request reads it exactly once and serves
// entirely from that catalog, so a reload happening mid-request cannot mix
// records from two snapshots into one response. Reload builds the new
// catalog completely before storing the pointer, so new requests never see
// a half-built index. In-flight requests simply finish on the snapshot they
// started with.
type UserService struct {
	snapshots store.SnapshotStore
	current   atomic.Pointer[catalog.Catalog]
	logger    *slog.Logger
}

// NewUserService creates a UserService. Call Reload before serving queries.
func NewUserService(snapshots store.SnapshotStore, logger *slog.Logger) *UserService {
	return &UserService{
		snapshots: snapshots,
		logger:    logger,
	}
}

// Reload loads the filtered snapshot and atomically swaps it in as the
// active catalog.
//
// On failure the previous catalog stays active — a bad reload never takes
// the service down, it just keeps serving the old snapshot.
func (s *UserService) Reload(ctx context.Context) error {
	ds, err := s.snapshots.Load(ctx, store.SnapshotFiltered)
	if err != nil {
		s.logger.Error("snapshot reload failed", slog.String("error", err.Error()))
		return fmt.Errorf("loading filtered snapshot: %w", err)
	}

	c := catalog.New(ds)
	s.current.Store(c)

	s.logger.Info("catalog reloaded", slog.Int("records", c.Len()))
	return nil
}

// List returns the full dataset in insertion order.
func (s *UserService) List(ctx context.Context) (model.Dataset, error) {
	c := s.current.Load()
	if c == nil {
		return nil, ErrNotLoaded
	}
	return c.List(), nil
}

// Get returns the record with the given login.
// Returns apperror.ErrNotFound for unknown logins.
func (s *UserService) Get(ctx context.Context, login string) (model.UserRecord, error) {
	c := s.current.Load()
	if c == nil {
		return model.UserRecord{}, ErrNotLoaded
	}
	return c.Get(login)
}

// Search returns records matching term.
// Returns apperror.ErrQueryTooShort for terms under the minimum length.
func (s *UserService) Search(ctx context.Context, term string) (model.Dataset, error) {
	c := s.current.Load()
	if c == nil {
		return nil, ErrNotLoaded
	}
	matches, err := c.Search(term)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("search executed",
		slog.String("term", term),
		slog.Int("matches", len(matches)),
	)
	return matches, nil
}
