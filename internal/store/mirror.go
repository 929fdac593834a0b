// Package store provides a SQLite-backed offline mirror of the budget
// snapshot. The mirror is not a source of truth: it holds one serialized
// blob under a well-known key, overwritten wholesale after every settled
// mutation or refresh, and read back only at cold start.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"pennywise/internal/model"

	_ "modernc.org/sqlite" // register sqlite driver
)

const snapshotKey = "snapshot"

// Mirror persists the engine's snapshot for offline resilience.
type Mirror struct {
	db *sql.DB
}

// Open opens or creates the mirror database at the given path.
func Open(dbPath string) (*Mirror, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)")
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Mirror{db: db}, nil
}

// Close closes the mirror database.
func (m *Mirror) Close() error {
	return m.db.Close()
}

// WriteSnapshot replaces the stored blob with the given snapshot.
func (m *Mirror) WriteSnapshot(snap model.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	savedAt := time.Now().UTC().Format(time.RFC3339)
	_, err = m.db.Exec(`INSERT OR REPLACE INTO snapshots (cache_key, payload, saved_at)
		VALUES (?, ?, ?)`, snapshotKey, string(payload), savedAt)
	if err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot returns the stored snapshot, with ok=false when the mirror
// is empty.
func (m *Mirror) ReadSnapshot() (model.Snapshot, bool, error) {
	var payload string
	err := m.db.QueryRow("SELECT payload FROM snapshots WHERE cache_key = ?", snapshotKey).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Snapshot{}, false, nil
	}
	if err != nil {
		return model.Snapshot{}, false, fmt.Errorf("reading snapshot: %w", err)
	}

	var snap model.Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return model.Snapshot{}, false, fmt.Errorf("decoding snapshot: %w", err)
	}
	return snap, true, nil
}

// Clear removes the stored blob. Used at logout.
func (m *Mirror) Clear() error {
	_, err := m.db.Exec("DELETE FROM snapshots WHERE cache_key = ?", snapshotKey)
	return err
}
