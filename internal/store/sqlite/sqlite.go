// Package sqlite implements the snapshot store on SQLite.
//
// WHY SQLITE FOR SNAPSHOTS?
// A snapshot save must be atomic — no reader may ever see a half-written
// dataset. Files get that from rename; here we get it from a transaction:
// delete-and-reinsert inside one tx commits as a single visible change.
// SQLite also keeps both snapshots in one file, which some deployments
// prefer over a directory of JSON files.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which needs a C compiler and makes
// cross-compilation painful. modernc.org/sqlite is a pure Go translation of
// SQLite — works everywhere Go works.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	// Blank import registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"

	"github.com/sakif/github-users/internal/model"
	"github.com/sakif/github-users/internal/store"
)

// compile-time check that *Store implements store.SnapshotStore
var _ store.SnapshotStore = (*Store)(nil)

// Store persists snapshots in a single SQLite database.
type Store struct {
	conn *sql.DB
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
// Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Ping forces a real connection so a bad path surfaces here, not on the
	// first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL mode allows the query service to read a snapshot while the batch
	// job is writing the next one.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection pool.
func (s *Store) Close() error {
	return s.conn.Close()
}

// migrate creates the snapshot tables.
//
// The snapshots table is the presence marker: a snapshot exists iff it has a
// row here, so an empty saved dataset (zero record rows, one marker row) is
// distinguishable from a snapshot that was never saved — Load must fail on
// the latter, same as the file backend failing on a missing file.
//
// Note there is no UNIQUE constraint on (snapshot, user_id): raw snapshots
// legitimately contain duplicate IDs. Position preserves insertion order.
func (s *Store) migrate() error {
	if _, err := s.conn.Exec(`
		CREATE TABLE IF NOT EXISTS snapshots (
			name     TEXT PRIMARY KEY,
			saved_at TEXT NOT NULL
		);
	`); err != nil {
		return fmt.Errorf("creating snapshots table: %w", err)
	}

	if _, err := s.conn.Exec(`
		CREATE TABLE IF NOT EXISTS snapshot_records (
			snapshot   TEXT    NOT NULL,
			position   INTEGER NOT NULL,
			login      TEXT    NOT NULL,
			user_id    INTEGER NOT NULL,
			created_at TEXT    NOT NULL DEFAULT '',
			avatar_url TEXT    NOT NULL DEFAULT '',
			bio        TEXT    NOT NULL DEFAULT '',
			PRIMARY KEY (snapshot, position)
		);
	`); err != nil {
		return fmt.Errorf("creating snapshot_records table: %w", err)
	}
	return nil
}

// Save replaces the named snapshot's rows in a single transaction.
// Until Commit, readers still see the previous snapshot in full.
func (s *Store) Save(ctx context.Context, name string, ds model.Dataset) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	// Rollback after Commit is a no-op, so defer unconditionally.
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM snapshot_records WHERE snapshot = ?`, name,
	); err != nil {
		return fmt.Errorf("sqlite: clearing snapshot %s: %w", name, err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO snapshots (name, saved_at) VALUES (?, ?)`,
		name, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("sqlite: marking snapshot %s: %w", name, err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO snapshot_records (snapshot, position, login, user_id, created_at, avatar_url, bio)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlite: preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range ds {
		if _, err := stmt.ExecContext(ctx,
			name, i, rec.Login, rec.ID, rec.CreatedAt, rec.AvatarURL, rec.Bio,
		); err != nil {
			return fmt.Errorf("sqlite: inserting record %d of snapshot %s: %w", i, name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing snapshot %s: %w", name, err)
	}
	return nil
}

// Load reads the named snapshot in insertion order.
// A snapshot that was never saved is an error, matching the file backend's
// behavior on a missing file — callers rely on Load failing to detect that
// extraction has not run yet.
func (s *Store) Load(ctx context.Context, name string) (model.Dataset, error) {
	var savedAt string
	err := s.conn.QueryRowContext(ctx,
		`SELECT saved_at FROM snapshots WHERE name = ?`, name,
	).Scan(&savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sqlite: snapshot %s has never been saved", name)
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking snapshot %s: %w", name, err)
	}

	rows, err := s.conn.QueryContext(ctx,
		`SELECT login, user_id, created_at, avatar_url, bio
		 FROM snapshot_records WHERE snapshot = ? ORDER BY position`,
		name,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying snapshot %s: %w", name, err)
	}
	defer rows.Close()

	ds := model.Dataset{}
	for rows.Next() {
		var rec model.UserRecord
		if err := rows.Scan(&rec.Login, &rec.ID, &rec.CreatedAt, &rec.AvatarURL, &rec.Bio); err != nil {
			return nil, fmt.Errorf("sqlite: scanning snapshot %s: %w", name, err)
		}
		ds = append(ds, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: reading snapshot %s: %w", name, err)
	}
	return ds, nil
}
