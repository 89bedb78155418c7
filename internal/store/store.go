// Package store persists the router snapshot between restarts.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"solar_router/internal/rules"
	"solar_router/internal/tank"
)

// Snapshot is everything the router needs to survive a restart.
type Snapshot struct {
	Tank                   tank.Snapshot `json:"water_tank"`
	Rules                  []rules.Rule  `json:"rules"`
	HeatingMode            string        `json:"heating_mode"`
	AutoModeEnabled        bool          `json:"auto_mode_enabled"`
	OffpeakFallbackEnabled bool          `json:"offpeak_fallback_enabled"`
}

// FileStore reads and writes the snapshot as a JSON file.
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the snapshot. A missing file is not an error; ok is false.
func (s *FileStore) Load() (Snapshot, bool, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("reading snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("parsing snapshot: %w", err)
	}
	return snap, true, nil
}

// Save writes the snapshot atomically via a temp file and rename, so a
// crash mid-write never leaves a truncated snapshot behind.
func (s *FileStore) Save(snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("creating temp snapshot: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing snapshot: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}
