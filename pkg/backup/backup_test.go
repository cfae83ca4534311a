package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestServiceCreateAndLoad(t *testing.T) {
	storage, err := NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}

	service := NewService(storage, "1.0.0")

	snap := &Snapshot{
		Devices: map[string]interface{}{
			"dev-1": map[string]interface{}{
				"id":   "dev-1",
				"name": "hallway camera",
			},
		},
		Recordings: map[string]interface{}{
			"rec-1": map[string]interface{}{
				"id":   "rec-1",
				"type": "photo",
			},
		},
	}

	name, err := service.Create(context.Background(), snap)
	if err != nil {
		t.Fatalf("failed to create snapshot: %v", err)
	}
	if name == "" {
		t.Fatal("expected non-empty snapshot name")
	}

	restored, err := service.Load(context.Background(), name)
	if err != nil {
		t.Fatalf("failed to load snapshot: %v", err)
	}
	if restored.Version != "1.0.0" {
		t.Errorf("expected version 1.0.0, got %s", restored.Version)
	}
	if len(restored.Devices) != 1 {
		t.Errorf("expected 1 device, got %d", len(restored.Devices))
	}
	if len(restored.Recordings) != 1 {
		t.Errorf("expected 1 recording, got %d", len(restored.Recordings))
	}
}

func TestServiceListAndDelete(t *testing.T) {
	storage, err := NewFileStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}

	service := NewService(storage, "1.0.0")

	name, err := service.Create(context.Background(), &Snapshot{})
	if err != nil {
		t.Fatalf("failed to create snapshot: %v", err)
	}

	names, err := service.List(context.Background())
	if err != nil {
		t.Fatalf("failed to list snapshots: %v", err)
	}
	if len(names) != 1 || names[0] != name {
		t.Errorf("expected [%s], got %v", name, names)
	}

	if err := service.Delete(context.Background(), name); err != nil {
		t.Fatalf("failed to delete snapshot: %v", err)
	}

	names, err = service.List(context.Background())
	if err != nil {
		t.Fatalf("failed to list snapshots: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("expected no snapshots, got %v", names)
	}
}

func TestFileStorageSaveIsAtomic(t *testing.T) {
	dir := t.TempDir()
	storage, err := NewFileStorage(dir)
	if err != nil {
		t.Fatalf("failed to create storage: %v", err)
	}

	service := NewService(storage, "1.0.0")
	name, err := service.Create(context.Background(), &Snapshot{})
	if err != nil {
		t.Fatalf("failed to create snapshot: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, name+".tmp")); !os.IsNotExist(err) {
		t.Error("temp file left behind after save")
	}
	if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
		t.Errorf("snapshot file missing: %v", err)
	}
}

func TestTimestampOf(t *testing.T) {
	ts, err := TimestampOf("backup-20260102-150405.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)
	if !ts.Equal(want) {
		t.Errorf("expected %v, got %v", want, ts)
	}

	if _, err := TimestampOf("garbage"); err == nil {
		t.Error("expected error for malformed name")
	}
}
