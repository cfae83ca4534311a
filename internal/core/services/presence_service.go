package services

import (
	"context"
	"time"

	"remoteeye/internal/core/domain"
	"remoteeye/internal/core/ports"

	"go.uber.org/zap"
)

// PresenceService keeps the persisted ONLINE/OFFLINE state of devices in sync
// with their connection lifecycle and fans status changes out to controllers.
type PresenceService interface {
	// DeviceOnline marks the device ONLINE, notifies watchers, and triggers
	// a drain of its command backlog.
	DeviceOnline(ctx context.Context, deviceID domain.DeviceID)
	// DeviceOffline marks the device OFFLINE and notifies watchers. It is
	// called on every session close, supersession included.
	DeviceOffline(ctx context.Context, deviceID domain.DeviceID)
	// ReportStatus relays an application-level status payload from the
	// device to its controllers and refreshes LastSeen.
	ReportStatus(ctx context.Context, deviceID domain.DeviceID, status map[string]interface{})
	// Heartbeat refreshes LastSeen without a broadcast.
	Heartbeat(ctx context.Context, deviceID domain.DeviceID)
	Status(ctx context.Context, deviceID domain.DeviceID) (*domain.Device, error)
}

type presenceService struct {
	devices     ports.DeviceRepository
	broadcaster ports.ControllerBroadcaster
	commands    CommandService
	logger      *zap.SugaredLogger
}

func NewPresenceService(
	devices ports.DeviceRepository,
	broadcaster ports.ControllerBroadcaster,
	commands CommandService,
	logger *zap.SugaredLogger,
) PresenceService {
	return &presenceService{
		devices:     devices,
		broadcaster: broadcaster,
		commands:    commands,
		logger:      logger,
	}
}

func (s *presenceService) DeviceOnline(ctx context.Context, deviceID domain.DeviceID) {
	now := time.Now()
	if err := s.devices.UpdatePresence(ctx, deviceID, domain.PresenceOnline, now); err != nil {
		s.logger.Errorw("failed to persist online presence", "device_id", deviceID, "error", err)
	}

	s.broadcaster.BroadcastStatus(deviceID, ports.StatusEvent{
		DeviceID: deviceID,
		Online:   true,
		LastSeen: now.UTC().Format(time.RFC3339),
	})

	// Commands queued while the device was away go out now, in order.
	s.commands.Drain(ctx, deviceID)
}

func (s *presenceService) DeviceOffline(ctx context.Context, deviceID domain.DeviceID) {
	now := time.Now()
	if err := s.devices.UpdatePresence(ctx, deviceID, domain.PresenceOffline, now); err != nil {
		s.logger.Errorw("failed to persist offline presence", "device_id", deviceID, "error", err)
	}

	s.broadcaster.BroadcastStatus(deviceID, ports.StatusEvent{
		DeviceID: deviceID,
		Online:   false,
		LastSeen: now.UTC().Format(time.RFC3339),
	})
}

func (s *presenceService) ReportStatus(ctx context.Context, deviceID domain.DeviceID, status map[string]interface{}) {
	now := time.Now()
	if err := s.devices.UpdatePresence(ctx, deviceID, domain.PresenceOnline, now); err != nil {
		s.logger.Errorw("failed to refresh last seen", "device_id", deviceID, "error", err)
	}

	s.broadcaster.BroadcastStatus(deviceID, ports.StatusEvent{
		DeviceID: deviceID,
		Online:   true,
		LastSeen: now.UTC().Format(time.RFC3339),
		Status:   status,
	})
}

func (s *presenceService) Heartbeat(ctx context.Context, deviceID domain.DeviceID) {
	if err := s.devices.UpdatePresence(ctx, deviceID, domain.PresenceOnline, time.Now()); err != nil {
		s.logger.Errorw("failed to record heartbeat", "device_id", deviceID, "error", err)
	}
}

func (s *presenceService) Status(ctx context.Context, deviceID domain.DeviceID) (*domain.Device, error) {
	return s.devices.GetByID(ctx, deviceID)
}
