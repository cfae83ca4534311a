package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Snapshot is the serialized state written to backup storage. Entries are
// stored as raw JSON maps so the package stays independent of domain types.
type Snapshot struct {
	Version    string                 `json:"version"`
	Timestamp  time.Time              `json:"timestamp"`
	Devices    map[string]interface{} `json:"devices,omitempty"`
	Recordings map[string]interface{} `json:"recordings,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// Storage defines the interface for snapshot storage backends.
type Storage interface {
	Save(ctx context.Context, name string, data io.Reader) error
	Load(ctx context.Context, name string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, name string) error
}

const namePrefix = "backup-"

// nameTimeLayout is embedded in the snapshot file name so retention and
// point-in-time lookup work without opening the file.
const nameTimeLayout = "20060102-150405"

// Service writes and reads snapshots against a storage backend.
type Service struct {
	storage Storage
	version string
}

// NewService creates a snapshot service. version is recorded in each
// snapshot and validated on restore.
func NewService(storage Storage, version string) *Service {
	return &Service{
		storage: storage,
		version: version,
	}
}

// Create serializes the snapshot and saves it under a timestamped name.
func (s *Service) Create(ctx context.Context, snap *Snapshot) (string, error) {
	snap.Version = s.version
	snap.Timestamp = time.Now()

	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	name := fmt.Sprintf("%s%s.json", namePrefix, snap.Timestamp.UTC().Format(nameTimeLayout))
	if err := s.storage.Save(ctx, name, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("failed to save snapshot: %w", err)
	}

	return name, nil
}

// Load reads a snapshot back from storage.
func (s *Service) Load(ctx context.Context, name string) (*Snapshot, error) {
	reader, err := s.storage.Load(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	return &snap, nil
}

// List returns the names of all stored snapshots.
func (s *Service) List(ctx context.Context) ([]string, error) {
	return s.storage.List(ctx, namePrefix)
}

// Delete removes a snapshot from storage.
func (s *Service) Delete(ctx context.Context, name string) error {
	return s.storage.Delete(ctx, name)
}

// TimestampOf parses the creation time embedded in a snapshot name.
func TimestampOf(name string) (time.Time, error) {
	if len(name) < len(namePrefix)+len(nameTimeLayout) {
		return time.Time{}, fmt.Errorf("malformed snapshot name: %s", name)
	}
	raw := name[len(namePrefix) : len(namePrefix)+len(nameTimeLayout)]
	ts, err := time.Parse(nameTimeLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed snapshot name %s: %w", name, err)
	}
	return ts, nil
}
