package persistence

import (
	"encoding/json"
	"fmt"
	"os"

	"ampgate/core/charging"
	"ampgate/core/logger"
)

// FileStore keeps the state blob in a single JSON file, written atomically
// via a temp file rename.
type FileStore struct {
	path string
	log  logger.Logger
}

// NewFileStore creates a store at path.
func NewFileStore(path string, log logger.Logger) *FileStore {
	return &FileStore{path: path, log: log}
}

// Load reads the persisted state. A missing file is (nil, false, nil); a
// corrupt one returns an error the caller treats as absent.
func (s *FileStore) Load() (*charging.State, bool, error) {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var st charging.State
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, false, fmt.Errorf("corrupt state file: %w", err)
	}
	return &st, true, nil
}

// Save writes the state blob.
func (s *FileStore) Save(st *charging.State) error {
	raw, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
