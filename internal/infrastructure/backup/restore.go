package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"remoteeye/internal/core/domain"
	"remoteeye/internal/core/ports"
	"remoteeye/pkg/backup"

	"go.uber.org/zap"
)

// RestoreService loads a snapshot back into the repositories.
type RestoreService struct {
	snapshots  *backup.Service
	devices    ports.DeviceRepository
	recordings ports.RecordingRepository
	logger     *zap.SugaredLogger
}

// NewRestoreService creates a new restore service
func NewRestoreService(
	snapshots *backup.Service,
	devices ports.DeviceRepository,
	recordings ports.RecordingRepository,
	logger *zap.SugaredLogger,
) *RestoreService {
	return &RestoreService{
		snapshots:  snapshots,
		devices:    devices,
		recordings: recordings,
		logger:     logger,
	}
}

// RestoreOptions contains restore options
type RestoreOptions struct {
	OverwriteExisting bool
	RestoreDevices    bool
	RestoreRecordings bool
}

// DefaultRestoreOptions returns default restore options
func DefaultRestoreOptions() RestoreOptions {
	return RestoreOptions{
		OverwriteExisting: false,
		RestoreDevices:    true,
		RestoreRecordings: true,
	}
}

// RestoreFromBackup restores repositories from a named snapshot.
func (rs *RestoreService) RestoreFromBackup(ctx context.Context, name string, options RestoreOptions) error {
	rs.logger.Infow("starting restore", "snapshot", name, "options", options)

	snap, err := rs.snapshots.Load(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}

	if snap.Version == "" {
		return fmt.Errorf("invalid snapshot: missing version")
	}

	if err := rs.restoreDevices(ctx, snap.Devices, options); err != nil {
		return fmt.Errorf("failed to restore devices: %w", err)
	}

	if err := rs.restoreRecordings(ctx, snap.Recordings, options); err != nil {
		return fmt.Errorf("failed to restore recordings: %w", err)
	}

	rs.logger.Infow("restore completed", "snapshot", name)
	return nil
}

func (rs *RestoreService) restoreDevices(ctx context.Context, devices map[string]interface{}, options RestoreOptions) error {
	if !options.RestoreDevices {
		return nil
	}

	for idStr, raw := range devices {
		id := domain.DeviceID(idStr)

		existing, err := rs.devices.GetByID(ctx, id)
		if err != nil && !errors.Is(err, domain.ErrDeviceNotFound) {
			return fmt.Errorf("failed to check device %s: %w", id, err)
		}
		if existing != nil && !options.OverwriteExisting {
			rs.logger.Debugw("skipping existing device", "device_id", id)
			continue
		}

		data, err := json.Marshal(raw)
		if err != nil {
			return fmt.Errorf("failed to marshal device entry: %w", err)
		}

		var snap deviceSnapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return fmt.Errorf("failed to unmarshal device entry: %w", err)
		}
		if snap.Device == nil {
			return fmt.Errorf("snapshot entry for device %s has no record", id)
		}
		snap.Device.SecretHash = snap.SecretHash

		// A restored device starts offline regardless of the state at
		// snapshot time.
		snap.Device.Presence = domain.PresenceOffline

		if existing == nil {
			err = rs.devices.Create(ctx, snap.Device)
		} else {
			err = rs.devices.Update(ctx, snap.Device)
		}
		if err != nil {
			return fmt.Errorf("failed to restore device %s: %w", id, err)
		}

		rs.logger.Debugw("restored device", "device_id", id)
	}

	return nil
}

func (rs *RestoreService) restoreRecordings(ctx context.Context, recordings map[string]interface{}, options RestoreOptions) error {
	if !options.RestoreRecordings {
		return nil
	}

	for id, raw := range recordings {
		existing, err := rs.recordings.GetByID(ctx, id)
		if err != nil && !errors.Is(err, domain.ErrRecordingNotFound) {
			return fmt.Errorf("failed to check recording %s: %w", id, err)
		}
		if existing != nil {
			rs.logger.Debugw("skipping existing recording", "recording_id", id)
			continue
		}

		data, err := json.Marshal(raw)
		if err != nil {
			return fmt.Errorf("failed to marshal recording entry: %w", err)
		}

		var rec domain.Recording
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("failed to unmarshal recording entry: %w", err)
		}

		if err := rs.recordings.Create(ctx, &rec); err != nil {
			return fmt.Errorf("failed to restore recording %s: %w", id, err)
		}

		rs.logger.Debugw("restored recording", "recording_id", id)
	}

	return nil
}

// FindBackupByTime finds the newest snapshot at or before the target time.
func (rs *RestoreService) FindBackupByTime(ctx context.Context, target time.Time) (string, error) {
	names, err := rs.snapshots.List(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list snapshots: %w", err)
	}

	var best string
	var bestTime time.Time

	for _, name := range names {
		ts, err := backup.TimestampOf(name)
		if err != nil {
			continue
		}
		if ts.After(target) {
			continue
		}
		if best == "" || ts.After(bestTime) {
			best = name
			bestTime = ts
		}
	}

	if best == "" {
		return "", fmt.Errorf("no snapshot found at or before %v", target)
	}

	return best, nil
}
