// Package file implements the snapshot store as JSON files on disk.
//
// Each snapshot is one file — a JSON array of user records — so the data
// stays inspectable with nothing more than a text editor or jq. This is the
// default backend; the sqlite backend exists for deployments that prefer a
// single database file.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sakif/github-users/internal/model"
	"github.com/sakif/github-users/internal/store"
)

// compile-time check that *Store implements store.SnapshotStore
var _ store.SnapshotStore = (*Store)(nil)

// Store persists snapshots as {dir}/{name}.json files.
type Store struct {
	dir string
}

// New creates a Store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("file store: creating %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Save writes the dataset as an indented JSON array.
//
// ATOMIC REPLACE:
// We write to a temp file in the same directory and then os.Rename it over
// the target. Rename within one filesystem is atomic, so a concurrent Load
// sees either the old complete file or the new complete file — never a
// half-written one. Writing the temp file in the target's directory (not
// os.TempDir) matters: rename across filesystems is not atomic.
func (s *Store) Save(ctx context.Context, name string, ds model.Dataset) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return fmt.Errorf("file store: encoding snapshot %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, name+"-*.json.tmp")
	if err != nil {
		return fmt.Errorf("file store: creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("file store: writing snapshot %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("file store: closing temp file: %w", err)
	}

	if err := os.Rename(tmpName, s.path(name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("file store: replacing snapshot %s: %w", name, err)
	}
	return nil
}

// Load reads the named snapshot.
// A structurally invalid file (unreadable, bad JSON) is an error — that is
// fatal to the caller's run, unlike individual bad records, which are the
// filter's business.
func (s *Store) Load(ctx context.Context, name string) (model.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(name))
	if err != nil {
		return nil, fmt.Errorf("file store: reading snapshot %s: %w", name, err)
	}

	var ds model.Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("file store: decoding snapshot %s: %w", name, err)
	}
	return ds, nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name+".json")
}
