package workerproc

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Store persists a Worker's catalog and stats as one opaque blob per
// worker id, backing the behavior.shutdown_persistence / behavior.dump_file
// config knobs: written on graceful shutdown, read back on the next
// startup under the same worker id.
type Store struct {
	db *sql.DB
}

// OpenStore opens (creating if needed) the SQLite file backing shutdown
// persistence.
func OpenStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("workerproc: create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("workerproc: open store: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("workerproc: ping store: %w", err)
	}

	const migration = `
CREATE TABLE IF NOT EXISTS worker_snapshots (
	worker_id TEXT PRIMARY KEY,
	saved_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	blob      TEXT NOT NULL
);`
	if _, err := db.Exec(migration); err != nil {
		db.Close()
		return nil, fmt.Errorf("workerproc: migrate store: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// snapshot is the opaque blob shape dumped and restored for one worker.
type snapshot struct {
	Functions map[string]Function  `json:"functions"`
	Stats     map[string]FuncStats `json:"stats"`
}

// Save writes the Worker's current catalog and stats under workerID,
// replacing any prior snapshot.
func (s *Store) Save(workerID string, catalog *Catalog, stats *StatsTable) error {
	snap := snapshot{Functions: catalog.All(), Stats: stats.All()}
	blob, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("workerproc: encode snapshot: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO worker_snapshots (worker_id, blob, saved_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(worker_id) DO UPDATE SET blob = excluded.blob, saved_at = CURRENT_TIMESTAMP`,
		workerID, string(blob),
	)
	if err != nil {
		return fmt.Errorf("workerproc: save snapshot: %w", err)
	}
	return nil
}

// Restore loads a previously-saved snapshot for workerID into catalog and
// stats. A missing snapshot is not an error - a fresh Worker simply starts
// empty.
func (s *Store) Restore(workerID string, catalog *Catalog, stats *StatsTable) error {
	var blob string
	err := s.db.QueryRow(`SELECT blob FROM worker_snapshots WHERE worker_id = ?`, workerID).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("workerproc: load snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal([]byte(blob), &snap); err != nil {
		return fmt.Errorf("workerproc: decode snapshot: %w", err)
	}

	for _, fn := range snap.Functions {
		catalog.Insert(fn)
	}
	for name, st := range snap.Stats {
		stats.restore(name, st)
	}
	return nil
}
