package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"smart-cart-service/apperrors"
)

// Offline store namespaces.
const (
	NamespaceSessions      = "sessions"
	NamespaceActivityQueue = "activity_log_queue"
)

// Record is one offline row: the stored document plus when it was written.
type Record struct {
	ID       string
	Data     map[string]any
	StoredAt time.Time
}

// OfflineStore is the durable local fallback: one record per
// (namespace, id), last write wins. Backed by SQLite so records survive
// process restart and power loss.
type OfflineStore struct {
	db *sql.DB
}

const offlineSchema = `
CREATE TABLE IF NOT EXISTS records (
	namespace  TEXT NOT NULL,
	id         TEXT NOT NULL,
	data       TEXT NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (namespace, id)
);
CREATE INDEX IF NOT EXISTS idx_records_updated ON records(namespace, updated_at);
`

// OpenOfflineStore creates or opens the store file.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - FULL synchronous mode: a Write only returns once the row has reached
//     stable storage, which is the whole point of the offline fallback
//   - 5-second busy timeout for lock contention
func OpenOfflineStore(path string) (*OfflineStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open offline store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to offline store: %w", err)
	}

	// SQLite only supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(offlineSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply offline schema: %w", err)
	}

	return &OfflineStore{db: db}, nil
}

// Close closes the underlying database.
func (s *OfflineStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Write upserts one record. Idempotent; overwrites an existing id.
func (s *OfflineStore) Write(namespace, id string, data map[string]any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("offline write %s/%s: %w", namespace, id, err)
	}

	_, err = s.db.Exec(`
		INSERT INTO records (namespace, id, data, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(namespace, id) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at
	`, namespace, id, string(payload), time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("offline write %s/%s: %w", namespace, id, err)
	}
	return nil
}

// Read returns the record data for an id, or ErrNotFound.
func (s *OfflineStore) Read(namespace, id string) (map[string]any, error) {
	var payload string
	err := s.db.QueryRow(
		`SELECT data FROM records WHERE namespace = ? AND id = ?`,
		namespace, id,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("offline read %s/%s: %w", namespace, id, err)
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return nil, fmt.Errorf("offline read %s/%s: %w", namespace, id, err)
	}
	return data, nil
}

// ListRecent returns records ordered by modification time descending.
// limit <= 0 returns everything in the namespace.
func (s *OfflineStore) ListRecent(namespace string, limit int) ([]Record, error) {
	query := `SELECT id, data, updated_at FROM records WHERE namespace = ? ORDER BY updated_at DESC`
	args := []any{namespace}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("offline list %s: %w", namespace, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			id        string
			payload   string
			updatedAt int64
		)
		if err := rows.Scan(&id, &payload, &updatedAt); err != nil {
			return nil, fmt.Errorf("offline list %s: %w", namespace, err)
		}

		var data map[string]any
		if err := json.Unmarshal([]byte(payload), &data); err != nil {
			return nil, fmt.Errorf("offline list %s/%s: %w", namespace, id, err)
		}
		records = append(records, Record{
			ID:       id,
			Data:     data,
			StoredAt: time.Unix(0, updatedAt),
		})
	}
	return records, rows.Err()
}

// Delete removes one record. Deleting a missing id is not an error.
func (s *OfflineStore) Delete(namespace, id string) error {
	if _, err := s.db.Exec(
		`DELETE FROM records WHERE namespace = ? AND id = ?`,
		namespace, id,
	); err != nil {
		return fmt.Errorf("offline delete %s/%s: %w", namespace, id, err)
	}
	return nil
}
