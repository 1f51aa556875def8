package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"ampgate/core/charging"
	"ampgate/core/logger"
)

// SQLiteStore keeps the state blob in a single-row SQLite table.
type SQLiteStore struct {
	db  *sql.DB
	log logger.Logger
}

// NewSQLiteStore opens or creates the database and ensures schema.
func NewSQLiteStore(path string, log logger.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS controller_state (
        id INTEGER PRIMARY KEY CHECK (id = 1),
        blob TEXT NOT NULL,
        updated_at INTEGER NOT NULL
    );`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db, log: log}, nil
}

// Load reads the persisted state row.
func (s *SQLiteStore) Load() (*charging.State, bool, error) {
	var raw string
	err := s.db.QueryRow(`SELECT blob FROM controller_state WHERE id = 1`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var st charging.State
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return nil, false, fmt.Errorf("corrupt state row: %w", err)
	}
	return &st, true, nil
}

// Save upserts the state row.
func (s *SQLiteStore) Save(st *charging.State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO controller_state (id, blob, updated_at)
        VALUES (1, ?, ?)
        ON CONFLICT(id) DO UPDATE SET blob = excluded.blob, updated_at = excluded.updated_at`,
		string(raw), time.Now().Unix())
	return err
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }
