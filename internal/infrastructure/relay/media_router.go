package relay

import (
	"time"

	"remoteeye/internal/core/domain"

	"go.uber.org/zap"
)

// MediaRouter fans media units from a device session out to every controller
// watching that device. Units are ephemeral: no persistence, no replay, and
// a slow controller sheds its own oldest buffered units without ever slowing
// the device or its other controllers.
type MediaRouter struct {
	registry *Registry
	metrics  Metrics
	logger   *zap.SugaredLogger
}

func NewMediaRouter(registry *Registry, metrics Metrics, logger *zap.SugaredLogger) *MediaRouter {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &MediaRouter{registry: registry, metrics: metrics, logger: logger}
}

// Publish fans one media unit out. Publishes from a session that is no
// longer the device's current one are discarded; a superseded device that
// has not yet noticed its close must not leak stale media to controllers.
func (m *MediaRouter) Publish(source *Session, kind domain.MediaKind, payload []byte, ts time.Time) {
	if m.registry.DeviceSession(source.DeviceID) != source {
		m.logger.Debugw("dropping media from stale device session",
			"device_id", source.DeviceID, "session_id", source.ID)
		return
	}

	controllers := m.registry.ControllerSessions(source.DeviceID)
	if len(controllers) == 0 {
		return
	}

	frame := &domain.MediaFrame{
		Kind:      kind,
		Payload:   payload,
		Timestamp: ts,
	}
	for _, c := range controllers {
		before := c.Dropped()
		c.QueueMedia(frame)
		if evicted := c.Dropped() - before; evicted > 0 {
			m.metrics.RecordMediaDropped(kind, evicted)
		}
	}
	m.metrics.RecordMediaRelayed(kind, len(payload), len(controllers))
}
