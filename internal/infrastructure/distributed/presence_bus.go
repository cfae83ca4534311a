package distributed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"remoteeye/internal/core/domain"
	"remoteeye/internal/core/ports"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const presenceChannel = "remoteeye:events:presence"

// EventType distinguishes presence notifications on the bus.
type EventType string

const (
	EventDeviceOnline  EventType = "device.online"
	EventDeviceOffline EventType = "device.offline"
	EventDeviceStatus  EventType = "device.status"
)

// Event is a presence notification relayed between instances.
type Event struct {
	Type       EventType         `json:"type"`
	InstanceID string            `json:"instance_id"`
	Timestamp  time.Time         `json:"timestamp"`
	DeviceID   domain.DeviceID   `json:"device_id"`
	Status     ports.StatusEvent `json:"status"`
}

// PresenceBus fans device status events out across relay instances over
// Redis pub/sub. A controller connected to one instance still sees presence
// changes for a device whose session lives on another instance. Local
// delivery always happens first; the cross-instance hop is best-effort.
type PresenceBus struct {
	client     *redis.Client
	instanceID string
	local      ports.ControllerBroadcaster
	logger     *zap.SugaredLogger
}

// NewPresenceBus creates a bus that mirrors status events through Redis.
// instanceID must be unique per process so a node can skip its own events.
func NewPresenceBus(
	client *redis.Client,
	instanceID string,
	local ports.ControllerBroadcaster,
	logger *zap.SugaredLogger,
) *PresenceBus {
	return &PresenceBus{
		client:     client,
		instanceID: instanceID,
		local:      local,
		logger:     logger,
	}
}

// BroadcastStatus delivers the event to local controllers and publishes it
// for other instances. Implements ports.ControllerBroadcaster.
func (b *PresenceBus) BroadcastStatus(deviceID domain.DeviceID, event ports.StatusEvent) {
	b.local.BroadcastStatus(deviceID, event)

	bus := Event{
		Type:       eventTypeFor(event),
		InstanceID: b.instanceID,
		Timestamp:  time.Now(),
		DeviceID:   deviceID,
		Status:     event,
	}

	data, err := json.Marshal(bus)
	if err != nil {
		b.logger.Warnw("failed to marshal presence event", "device_id", deviceID, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := b.client.Publish(ctx, presenceChannel, data).Err(); err != nil {
		b.logger.Warnw("failed to publish presence event",
			"device_id", deviceID,
			"error", err,
		)
	}
}

func eventTypeFor(event ports.StatusEvent) EventType {
	switch {
	case len(event.Status) > 0:
		return EventDeviceStatus
	case event.Online:
		return EventDeviceOnline
	default:
		return EventDeviceOffline
	}
}

// Run subscribes to the presence channel and re-broadcasts remote events to
// local controllers until ctx is cancelled.
func (b *PresenceBus) Run(ctx context.Context) error {
	pubsub := b.client.Subscribe(ctx, presenceChannel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to presence channel: %w", err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.logger.Warnw("failed to unmarshal presence event",
					"error", err,
					"payload", msg.Payload,
				)
				continue
			}

			// Our own events already reached local controllers.
			if event.InstanceID == b.instanceID {
				continue
			}

			b.local.BroadcastStatus(event.DeviceID, event.Status)
		}
	}
}
