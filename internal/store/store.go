// Package store defines the snapshot persistence contract.
//
// A snapshot is a complete, immutable dataset at one point in time. The
// pipeline persists exactly two of them — the raw extraction output and the
// filtered result — and the query service loads the filtered one.
//
// Both operations are atomic whole-snapshot replaces: a reader never
// observes a partially written dataset, whatever the backend.
package store

import (
	"context"

	"github.com/sakif/github-users/internal/model"
)

// Well-known snapshot names used by the pipeline and the query service.
const (
	SnapshotRaw      = "raw"
	SnapshotFiltered = "filtered"
)

// SnapshotStore reads and writes named dataset snapshots.
//
// Save replaces the named snapshot in full; Load returns its current
// contents. Implementations must preserve record order and duplicates —
// raw datasets legitimately contain duplicate IDs.
type SnapshotStore interface {
	Save(ctx context.Context, name string, ds model.Dataset) error
	Load(ctx context.Context, name string) (model.Dataset, error)
}
