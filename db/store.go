package db

import (
	"database/sql"
	"fmt"
	"time"
)

// ItemRecord is one generated collection item as persisted in the manifest.
type ItemRecord struct {
	Index        int
	RunID        string
	Signature    string
	ImagePath    string
	MetadataPath string
	CreatedAt    time.Time
}

// TraitCount is an aggregated per-variant occurrence count for a run.
type TraitCount struct {
	Category string
	Variant  string
	Count    int
}

// Run status values stored in the runs table.
const (
	RunStatusRunning   = "running"
	RunStatusComplete  = "complete"
	RunStatusPartial   = "partial"
	RunStatusCancelled = "cancelled"
)

// Store wraps the manifest database and exposes typed operations on it.
// All writes go through prepared single statements; the connection pool is
// limited to one writer so SQLite lock contention never surfaces to callers.
type Store struct {
	conn *sql.DB
}

// Open opens (creating if needed) the manifest database at path, enables WAL
// mode, and applies any pending schema migrations.
func Open(path string) (*Store, error) {
	conn, err := NewSQLiteConnectionWithDefaults(path)
	if err != nil {
		return nil, fmt.Errorf("db: opening manifest: %w", err)
	}
	if err := runMigrations(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("db: migrating manifest: %w", err)
	}
	return &Store{conn: conn}, nil
}

// OpenWithConnection wraps an existing connection. Used by tests that need
// to inject a pre-configured database.
func OpenWithConnection(conn *sql.DB) (*Store, error) {
	if err := runMigrations(conn); err != nil {
		return nil, fmt.Errorf("db: migrating manifest: %w", err)
	}
	return &Store{conn: conn}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// RecordRun inserts a new run row in the running state.
func (s *Store) RecordRun(runID string, seed int64, targetSize int) error {
	_, err := s.conn.Exec(
		`INSERT INTO runs (run_id, seed, target_size, status) VALUES (?, ?, ?, ?)`,
		runID, seed, targetSize, RunStatusRunning,
	)
	if err != nil {
		return fmt.Errorf("db: recording run %s: %w", runID, err)
	}
	return nil
}

// FinishRun marks a run finished with the given status and produced count.
func (s *Store) FinishRun(runID, status string, produced int) error {
	_, err := s.conn.Exec(
		`UPDATE runs SET status = ?, produced = ?, finished_at = CURRENT_TIMESTAMP WHERE run_id = ?`,
		status, produced, runID,
	)
	if err != nil {
		return fmt.Errorf("db: finishing run %s: %w", runID, err)
	}
	return nil
}

// InsertItem persists one generated item. The UNIQUE constraint on signature
// backs up the in-memory uniqueness tracker: a duplicate insert fails loudly
// instead of silently corrupting the manifest.
func (s *Store) InsertItem(item ItemRecord) error {
	_, err := s.conn.Exec(
		`INSERT INTO items (item_index, run_id, signature, image_path, metadata_path)
		 VALUES (?, ?, ?, ?, ?)`,
		item.Index, item.RunID, item.Signature, item.ImagePath, item.MetadataPath,
	)
	if err != nil {
		return fmt.Errorf("db: inserting item %d: %w", item.Index, err)
	}
	return nil
}

// BumpTraitCount increments the occurrence count for one (category, variant)
// pair within a run, creating the row on first sight.
func (s *Store) BumpTraitCount(runID, category, variant string) error {
	_, err := s.conn.Exec(
		`INSERT INTO trait_counts (run_id, category, variant, count) VALUES (?, ?, ?, 1)
		 ON CONFLICT(run_id, category, variant) DO UPDATE SET count = count + 1`,
		runID, category, variant,
	)
	if err != nil {
		return fmt.Errorf("db: bumping trait count %s/%s: %w", category, variant, err)
	}
	return nil
}

// TraitCounts returns all per-variant counts for a run, ordered by category
// then variant for stable output.
func (s *Store) TraitCounts(runID string) ([]TraitCount, error) {
	rows, err := s.conn.Query(
		`SELECT category, variant, count FROM trait_counts
		 WHERE run_id = ? ORDER BY category, variant`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("db: querying trait counts: %w", err)
	}
	defer rows.Close()

	var counts []TraitCount
	for rows.Next() {
		var tc TraitCount
		if err := rows.Scan(&tc.Category, &tc.Variant, &tc.Count); err != nil {
			return nil, fmt.Errorf("db: scanning trait count: %w", err)
		}
		counts = append(counts, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db: iterating trait counts: %w", err)
	}
	return counts, nil
}

// ItemCount returns how many items a run has persisted.
func (s *Store) ItemCount(runID string) (int, error) {
	var n int
	err := s.conn.QueryRow(`SELECT COUNT(*) FROM items WHERE run_id = ?`, runID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("db: counting items: %w", err)
	}
	return n, nil
}

// Items returns all items for a run ordered by index.
func (s *Store) Items(runID string) ([]ItemRecord, error) {
	rows, err := s.conn.Query(
		`SELECT item_index, run_id, signature, image_path, metadata_path, created_at
		 FROM items WHERE run_id = ? ORDER BY item_index`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("db: querying items: %w", err)
	}
	defer rows.Close()

	var items []ItemRecord
	for rows.Next() {
		var it ItemRecord
		if err := rows.Scan(&it.Index, &it.RunID, &it.Signature, &it.ImagePath, &it.MetadataPath, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("db: scanning item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db: iterating items: %w", err)
	}
	return items, nil
}
