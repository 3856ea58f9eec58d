package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"laddersim/internal/domain"
)

// Compile-time interface check.
var _ SnapshotStore = (*FileSnapshotStore)(nil)

// FileSnapshotStore implements SnapshotStore as a JSON file.
type FileSnapshotStore struct {
	path string
}

// NewFileSnapshotStore returns a store backed by the file at path. The file
// is created on first Save.
func NewFileSnapshotStore(path string) *FileSnapshotStore {
	return &FileSnapshotStore{path: path}
}

// Load reads the snapshot file.
func (s *FileSnapshotStore) Load(_ context.Context) (*domain.Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("reading snapshot file: %w", err)
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot file: %w", err)
	}
	return &snap, nil
}

// Save writes the snapshot to a temporary file and renames it into place.
func (s *FileSnapshotStore) Save(_ context.Context, snap *domain.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing snapshot file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing snapshot file: %w", err)
	}
	return nil
}

// Clear removes the snapshot file.
func (s *FileSnapshotStore) Clear(_ context.Context) error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing snapshot file: %w", err)
	}
	return nil
}

// Close is a no-op.
func (s *FileSnapshotStore) Close() error { return nil }
