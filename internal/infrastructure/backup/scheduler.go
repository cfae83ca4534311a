package backup

import (
	"context"
	"fmt"
	"time"

	"remoteeye/internal/core/domain"
	"remoteeye/internal/core/ports"
	"remoteeye/pkg/backup"

	"go.uber.org/zap"
)

// recordings per device included in a snapshot
const snapshotRecordingLimit = 1000

// deviceSnapshot carries the secret hash alongside the device record. The
// hash is excluded from the device's JSON form, but without it a restored
// device could never log in again.
type deviceSnapshot struct {
	Device     *domain.Device `json:"device"`
	SecretHash string         `json:"secret_hash"`
}

// Scheduler periodically snapshots the device registry and recording index.
type Scheduler struct {
	snapshots     *backup.Service
	devices       ports.DeviceRepository
	recordings    ports.RecordingRepository
	interval      time.Duration
	retentionDays int
	logger        *zap.SugaredLogger
	stopChan      chan struct{}
}

// Config contains scheduler configuration
type Config struct {
	Interval      time.Duration
	RetentionDays int
}

// NewScheduler creates a new backup scheduler
func NewScheduler(
	snapshots *backup.Service,
	devices ports.DeviceRepository,
	recordings ports.RecordingRepository,
	cfg Config,
	logger *zap.SugaredLogger,
) *Scheduler {
	return &Scheduler{
		snapshots:     snapshots,
		devices:       devices,
		recordings:    recordings,
		interval:      cfg.Interval,
		retentionDays: cfg.RetentionDays,
		logger:        logger,
		stopChan:      make(chan struct{}),
	}
}

// Start runs the scheduler until Stop is called or ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Run initial backup
	s.runBackup(ctx)

	for {
		select {
		case <-ticker.C:
			s.runBackup(ctx)
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop stops the backup scheduler
func (s *Scheduler) Stop() {
	close(s.stopChan)
}

func (s *Scheduler) runBackup(ctx context.Context) {
	s.logger.Info("starting scheduled backup")

	snap, err := s.collect(ctx)
	if err != nil {
		s.logger.Errorw("failed to collect snapshot data", "error", err)
		return
	}

	name, err := s.snapshots.Create(ctx, snap)
	if err != nil {
		s.logger.Errorw("failed to create snapshot", "error", err)
		return
	}

	s.logger.Infow("snapshot created",
		"name", name,
		"devices", len(snap.Devices),
		"recordings", len(snap.Recordings),
	)

	if err := s.cleanupOldBackups(ctx); err != nil {
		s.logger.Warnw("failed to clean up old snapshots", "error", err)
	}
}

// collect gathers every paired device (with secret hash) plus the recording
// index for each.
func (s *Scheduler) collect(ctx context.Context) (*backup.Snapshot, error) {
	snap := &backup.Snapshot{
		Devices:    make(map[string]interface{}),
		Recordings: make(map[string]interface{}),
		Metadata:   make(map[string]interface{}),
	}

	devices, err := s.devices.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	for _, dev := range devices {
		snap.Devices[string(dev.ID)] = deviceSnapshot{
			Device:     dev,
			SecretHash: dev.SecretHash,
		}

		recs, _, err := s.recordings.List(ctx, dev.ID, snapshotRecordingLimit, 0)
		if err != nil {
			s.logger.Warnw("failed to list recordings for device",
				"device_id", dev.ID,
				"error", err,
			)
			continue
		}
		for _, rec := range recs {
			snap.Recordings[rec.ID] = rec
		}
	}

	snap.Metadata["device_count"] = len(snap.Devices)
	snap.Metadata["recording_count"] = len(snap.Recordings)
	snap.Metadata["backup_type"] = "scheduled"

	return snap, nil
}

func (s *Scheduler) cleanupOldBackups(ctx context.Context) error {
	names, err := s.snapshots.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list snapshots: %w", err)
	}

	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)

	for _, name := range names {
		ts, err := backup.TimestampOf(name)
		if err != nil {
			s.logger.Warnw("skipping snapshot with malformed name", "name", name)
			continue
		}

		if ts.Before(cutoff) {
			if err := s.snapshots.Delete(ctx, name); err != nil {
				s.logger.Warnw("failed to delete old snapshot", "name", name, "error", err)
				continue
			}
			s.logger.Infow("deleted old snapshot", "name", name, "age", time.Since(ts))
		}
	}

	return nil
}
