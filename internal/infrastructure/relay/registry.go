package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"remoteeye/internal/core/domain"
	"remoteeye/internal/core/ports"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var ErrDeviceOffline = errors.New("device has no live session")

// Metrics is the slice of the monitoring collector the relay records into.
type Metrics interface {
	RecordConnected(role domain.Role)
	RecordDisconnected(role domain.Role, connected time.Duration)
	RecordSupersession()
	RecordMediaRelayed(kind domain.MediaKind, bytes int, fanout int)
	RecordMediaDropped(kind domain.MediaKind, count uint64)
	RecordCommandDelivery(createdToDelivered time.Duration)
	RecordMalformedMessage()
}

type nopMetrics struct{}

func (nopMetrics) RecordConnected(domain.Role)                   {}
func (nopMetrics) RecordDisconnected(domain.Role, time.Duration) {}
func (nopMetrics) RecordSupersession()                           {}
func (nopMetrics) RecordMediaRelayed(domain.MediaKind, int, int) {}
func (nopMetrics) RecordMediaDropped(domain.MediaKind, uint64)   {}
func (nopMetrics) RecordCommandDelivery(time.Duration)           {}
func (nopMetrics) RecordMalformedMessage()                       {}

// Registry tracks every live relay session. Each device has at most one
// device session at any instant; admitting a second one supersedes the
// first. Controllers attach to a device in any number.
type Registry struct {
	mu          sync.RWMutex
	devices     map[domain.DeviceID]*Session
	controllers map[domain.DeviceID]map[string]*Session
	opened      map[string]time.Time

	// deviceMu serializes admit/remove per device so a supersession can
	// never interleave with another admit for the same device.
	deviceMuMu sync.Mutex
	deviceMu   map[domain.DeviceID]*sync.Mutex

	metrics Metrics
	logger  *zap.SugaredLogger
}

func NewRegistry(metrics Metrics, logger *zap.SugaredLogger) *Registry {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Registry{
		devices:     make(map[domain.DeviceID]*Session),
		controllers: make(map[domain.DeviceID]map[string]*Session),
		opened:      make(map[string]time.Time),
		deviceMu:    make(map[domain.DeviceID]*sync.Mutex),
		metrics:     metrics,
		logger:      logger,
	}
}

func (r *Registry) lockFor(deviceID domain.DeviceID) *sync.Mutex {
	r.deviceMuMu.Lock()
	defer r.deviceMuMu.Unlock()
	l, ok := r.deviceMu[deviceID]
	if !ok {
		l = &sync.Mutex{}
		r.deviceMu[deviceID] = l
	}
	return l
}

// AdmitDevice installs the session as the device's current one. An existing
// session for the same device is closed with a supersession code first; the
// winner is always the latest admit.
func (r *Registry) AdmitDevice(session *Session) {
	lock := r.lockFor(session.DeviceID)
	lock.Lock()
	defer lock.Unlock()

	r.mu.Lock()
	old := r.devices[session.DeviceID]
	r.devices[session.DeviceID] = session
	r.opened[session.ID] = time.Now()
	r.mu.Unlock()

	if old != nil {
		old.Close(CloseSuperseded, "superseded by a newer session")
		r.metrics.RecordSupersession()
		r.finishSession(old)
		r.logger.Infow("device session superseded",
			"device_id", session.DeviceID, "old_session", old.ID, "new_session", session.ID)
	}

	r.metrics.RecordConnected(domain.RoleDevice)
	go session.writePump()
}

// AdmitController attaches a controller session to its device.
func (r *Registry) AdmitController(session *Session) {
	r.mu.Lock()
	set, ok := r.controllers[session.DeviceID]
	if !ok {
		set = make(map[string]*Session)
		r.controllers[session.DeviceID] = set
	}
	set[session.ID] = session
	r.opened[session.ID] = time.Now()
	r.mu.Unlock()

	r.metrics.RecordConnected(domain.RoleController)
	go session.writePump()
}

// Remove detaches a session. It is idempotent, and for device sessions it is
// a no-op when a newer session has already taken the slot: the superseded
// goroutine must not knock out its successor. The return reports whether the
// removed session was the device's current one.
func (r *Registry) Remove(session *Session) bool {
	switch session.Role {
	case domain.RoleDevice:
		lock := r.lockFor(session.DeviceID)
		lock.Lock()
		defer lock.Unlock()

		r.mu.Lock()
		current := r.devices[session.DeviceID] == session
		if current {
			delete(r.devices, session.DeviceID)
		}
		r.mu.Unlock()

		session.Close(websocket.CloseNormalClosure, "")
		r.finishSession(session)
		return current

	default:
		r.mu.Lock()
		set := r.controllers[session.DeviceID]
		delete(set, session.ID)
		if len(set) == 0 {
			delete(r.controllers, session.DeviceID)
		}
		r.mu.Unlock()

		session.Close(websocket.CloseNormalClosure, "")
		r.finishSession(session)
		return false
	}
}

// finishSession records disconnect metrics once per session; the opened
// timestamp doubles as the idempotency marker.
func (r *Registry) finishSession(s *Session) {
	r.mu.Lock()
	openedAt, ok := r.opened[s.ID]
	delete(r.opened, s.ID)
	r.mu.Unlock()
	if ok {
		r.metrics.RecordDisconnected(s.Role, time.Since(openedAt))
	}
}

// DeviceSession returns the device's current session, nil if offline.
func (r *Registry) DeviceSession(deviceID domain.DeviceID) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.devices[deviceID]
}

// ControllerSessions snapshots the controllers attached to a device.
func (r *Registry) ControllerSessions(deviceID domain.DeviceID) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.controllers[deviceID]
	out := make([]*Session, 0, len(set))
	for _, s := range set {
		out = append(out, s)
	}
	return out
}

// IsDeviceOnline implements ports.DeviceSender.
func (r *Registry) IsDeviceOnline(deviceID domain.DeviceID) bool {
	return r.DeviceSession(deviceID) != nil
}

// SendCommand implements ports.DeviceSender: it queues a command envelope on
// the device's current session. An error means the write was not accepted
// and the command must stay queued.
func (r *Registry) SendCommand(ctx context.Context, deviceID domain.DeviceID, cmd *domain.Command) error {
	session := r.DeviceSession(deviceID)
	if session == nil {
		return ErrDeviceOffline
	}

	data, err := encodeMessage(TypeCommand, CommandPayload{
		ID:     cmd.ID,
		Action: cmd.Action,
		Params: cmd.Params,
	})
	if err != nil {
		return err
	}
	if err := session.QueueControl(data); err != nil {
		return fmt.Errorf("queue command %s: %w", cmd.ID, err)
	}

	r.metrics.RecordCommandDelivery(time.Since(cmd.CreatedAt))
	return nil
}

// BroadcastStatus implements ports.ControllerBroadcaster. Delivery is
// best-effort per controller; a full or closed session is skipped.
func (r *Registry) BroadcastStatus(deviceID domain.DeviceID, event ports.StatusEvent) {
	data, err := encodeMessage(TypeStatus, StatusEventPayload{
		DeviceID: event.DeviceID,
		Online:   event.Online,
		LastSeen: event.LastSeen,
		Status:   event.Status,
	})
	if err != nil {
		r.logger.Errorw("failed to encode status event", "device_id", deviceID, "error", err)
		return
	}

	for _, session := range r.ControllerSessions(deviceID) {
		if err := session.QueueControl(data); err != nil {
			r.logger.Debugw("status broadcast skipped controller",
				"device_id", deviceID, "session_id", session.ID, "error", err)
		}
	}
}

// CloseAll tears down every live session, for server shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.devices))
	for _, s := range r.devices {
		sessions = append(sessions, s)
	}
	for _, set := range r.controllers {
		for _, s := range set {
			sessions = append(sessions, s)
		}
	}
	r.devices = make(map[domain.DeviceID]*Session)
	r.controllers = make(map[domain.DeviceID]map[string]*Session)
	r.opened = make(map[string]time.Time)
	r.mu.Unlock()

	for _, s := range sessions {
		s.Close(websocket.CloseGoingAway, "server shutting down")
	}
}
