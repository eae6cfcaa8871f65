// Package filestore persists the triage snapshot as a single JSON file.
// Writes go through a temp file plus rename, so readers always see either
// the previous complete snapshot or the new one, never a partial write.
package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/linnemanlabs/scout/internal/triage"
)

// Store reads and replaces a snapshot file on local disk.
type Store struct {
	path string
}

// New creates a file-backed snapshot store at path. The parent directory
// is created on first Save if missing.
func New(path string) *Store {
	return &Store{path: path}
}

// Load reads the snapshot file. A missing file is a valid initial state
// and returns ok=false without error.
func (s *Store) Load(_ context.Context) (*triage.Snapshot, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read snapshot: %w", err)
	}

	var snap triage.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, false, fmt.Errorf("decode snapshot %s: %w", s.path, err)
	}
	return &snap, true, nil
}

// Save atomically replaces the snapshot file.
func (s *Store) Save(_ context.Context, snap *triage.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	// Temp file in the same directory so the rename stays on one
	// filesystem and is atomic.
	tmp, err := os.CreateTemp(dir, ".snapshot-*.json")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp snapshot: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}
