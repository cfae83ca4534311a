package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"remoteeye/internal/core/domain"
	"remoteeye/internal/core/ports"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrUnknownCommand  = errors.New("unknown command")
	ErrUnknownAction   = errors.New("unknown command action")
	ErrBadTransition   = errors.New("illegal command status transition")
	ErrCommandFinished = errors.New("command already in a terminal status")
)

// CommandService owns the per-device FIFO command queue: enqueue, drain on
// (re)connect, status acknowledgement, and expiry of stale pending commands.
type CommandService interface {
	// Enqueue stores a command and, if the device is online, delivers it
	// immediately. The returned bool reports whether delivery happened.
	Enqueue(ctx context.Context, deviceID domain.DeviceID, action domain.CommandAction, params map[string]interface{}) (*domain.Command, bool, error)
	// Drain pushes the device's PENDING backlog in creation order, marking
	// each DELIVERED as the transport accepts the write. It stops at the
	// first transport failure.
	Drain(ctx context.Context, deviceID domain.DeviceID)
	// Acknowledge applies a device-reported status to a command, enforcing
	// single-step monotonic transitions.
	Acknowledge(ctx context.Context, deviceID domain.DeviceID, id domain.CommandID, status domain.CommandStatus, errMsg string) (*domain.Command, error)
	GetCommand(ctx context.Context, id domain.CommandID) (*domain.Command, error)
	History(ctx context.Context, deviceID domain.DeviceID, status domain.CommandStatus, limit, offset int) ([]*domain.Command, int, error)
	// Run drives the periodic expiry sweep until the context is cancelled.
	Run(ctx context.Context)
}

// CommandMetrics is the slice of the monitoring collector the queue records
// lifecycle transitions into.
type CommandMetrics interface {
	RecordCommandStatus(status string)
}

type nopCommandMetrics struct{}

func (nopCommandMetrics) RecordCommandStatus(string) {}

type commandService struct {
	commands    ports.CommandRepository
	sender      ports.DeviceSender
	pendingTTL  time.Duration
	sweepEvery  time.Duration
	metrics     CommandMetrics
	logger      *zap.SugaredLogger
	mu          sync.Mutex
	deviceLocks map[domain.DeviceID]*sync.Mutex
}

func NewCommandService(
	commands ports.CommandRepository,
	sender ports.DeviceSender,
	pendingTTL time.Duration,
	sweepEvery time.Duration,
	metrics CommandMetrics,
	logger *zap.SugaredLogger,
) CommandService {
	if metrics == nil {
		metrics = nopCommandMetrics{}
	}
	return &commandService{
		commands:    commands,
		sender:      sender,
		pendingTTL:  pendingTTL,
		sweepEvery:  sweepEvery,
		metrics:     metrics,
		logger:      logger,
		deviceLocks: make(map[domain.DeviceID]*sync.Mutex),
	}
}

// lockFor returns the mutex serializing queue operations for one device.
// Per-device locking keeps a slow drain from blocking unrelated devices.
func (s *commandService) lockFor(deviceID domain.DeviceID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.deviceLocks[deviceID]
	if !ok {
		l = &sync.Mutex{}
		s.deviceLocks[deviceID] = l
	}
	return l
}

func (s *commandService) Enqueue(ctx context.Context, deviceID domain.DeviceID, action domain.CommandAction, params map[string]interface{}) (*domain.Command, bool, error) {
	if !domain.ValidAction(action) {
		return nil, false, ErrUnknownAction
	}

	cmd := &domain.Command{
		ID:        domain.CommandID(uuid.New().String()),
		DeviceID:  deviceID,
		Action:    action,
		Params:    params,
		Status:    domain.CommandPending,
		CreatedAt: time.Now(),
	}

	lock := s.lockFor(deviceID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.commands.Create(ctx, cmd); err != nil {
		return nil, false, err
	}
	s.metrics.RecordCommandStatus(string(domain.CommandPending))

	if !s.sender.IsDeviceOnline(deviceID) {
		return cmd, false, nil
	}

	// Online: deliver the whole backlog in order so this command cannot
	// overtake an older pending one left from a reconnect window.
	delivered := s.drainLocked(ctx, deviceID)
	fresh, err := s.commands.GetByID(ctx, cmd.ID)
	if err != nil {
		return cmd, delivered > 0, nil
	}
	return fresh, fresh.Status == domain.CommandDelivered, nil
}

func (s *commandService) Drain(ctx context.Context, deviceID domain.DeviceID) {
	lock := s.lockFor(deviceID)
	lock.Lock()
	defer lock.Unlock()
	s.drainLocked(ctx, deviceID)
}

// drainLocked delivers pending commands one at a time while the caller holds
// the device lock. A command is marked DELIVERED only after the transport
// accepted the write, so a failed write leaves it PENDING for the next drain.
func (s *commandService) drainLocked(ctx context.Context, deviceID domain.DeviceID) int {
	pending, err := s.commands.ListPending(ctx, deviceID)
	if err != nil {
		s.logger.Errorw("failed to list pending commands", "device_id", deviceID, "error", err)
		return 0
	}

	delivered := 0
	for _, cmd := range pending {
		if err := s.sender.SendCommand(ctx, deviceID, cmd); err != nil {
			s.logger.Infow("command delivery stopped", "device_id", deviceID, "command_id", cmd.ID, "error", err)
			break
		}
		now := time.Now()
		cmd.Status = domain.CommandDelivered
		cmd.DeliveredAt = &now
		if err := s.commands.Update(ctx, cmd); err != nil {
			s.logger.Errorw("failed to mark command delivered", "command_id", cmd.ID, "error", err)
			break
		}
		s.metrics.RecordCommandStatus(string(domain.CommandDelivered))
		delivered++
	}
	return delivered
}

func (s *commandService) Acknowledge(ctx context.Context, deviceID domain.DeviceID, id domain.CommandID, status domain.CommandStatus, errMsg string) (*domain.Command, error) {
	lock := s.lockFor(deviceID)
	lock.Lock()
	defer lock.Unlock()

	cmd, err := s.commands.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrCommandNotFound) {
			return nil, ErrUnknownCommand
		}
		return nil, err
	}
	if cmd.DeviceID != deviceID {
		return nil, ErrUnknownCommand
	}
	if cmd.Status.Terminal() {
		return nil, ErrCommandFinished
	}
	if !cmd.Status.CanTransition(status) {
		return nil, ErrBadTransition
	}

	cmd.Status = status
	if status.Terminal() {
		now := time.Now()
		cmd.CompletedAt = &now
	}
	if status == domain.CommandFailed {
		cmd.Error = errMsg
	}
	if err := s.commands.Update(ctx, cmd); err != nil {
		return nil, err
	}
	s.metrics.RecordCommandStatus(string(status))
	return cmd, nil
}

func (s *commandService) GetCommand(ctx context.Context, id domain.CommandID) (*domain.Command, error) {
	return s.commands.GetByID(ctx, id)
}

func (s *commandService) History(ctx context.Context, deviceID domain.DeviceID, status domain.CommandStatus, limit, offset int) ([]*domain.Command, int, error) {
	return s.commands.ListByDevice(ctx, deviceID, status, limit, offset)
}

func (s *commandService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.expire(ctx)
		}
	}
}

// expire moves PENDING commands older than the TTL to EXPIRED. One pass per
// tick; commands delivered mid-sweep lose the race and are left alone.
func (s *commandService) expire(ctx context.Context) {
	cutoff := time.Now().Add(-s.pendingTTL)
	stale, err := s.commands.ListPendingBefore(ctx, cutoff)
	if err != nil {
		s.logger.Errorw("expiry sweep failed", "error", err)
		return
	}

	for _, cmd := range stale {
		lock := s.lockFor(cmd.DeviceID)
		lock.Lock()
		fresh, err := s.commands.GetByID(ctx, cmd.ID)
		if err == nil && fresh.Status == domain.CommandPending {
			fresh.Status = domain.CommandExpired
			now := time.Now()
			fresh.CompletedAt = &now
			if err := s.commands.Update(ctx, fresh); err != nil {
				s.logger.Errorw("failed to expire command", "command_id", fresh.ID, "error", err)
			} else {
				s.metrics.RecordCommandStatus(string(domain.CommandExpired))
				s.logger.Infow("command expired", "command_id", fresh.ID, "device_id", fresh.DeviceID)
			}
		}
		lock.Unlock()
	}
}
