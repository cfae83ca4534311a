package ports

import (
	"context"

	"remoteeye/internal/core/domain"
)

// StatusEvent is a presence notification fanned out to the controllers
// watching a device.
type StatusEvent struct {
	DeviceID domain.DeviceID        `json:"device_id"`
	Online   bool                   `json:"online"`
	LastSeen string                 `json:"last_seen"`
	Status   map[string]interface{} `json:"status,omitempty"`
}

// DeviceSender delivers payloads to the single live device session. The
// connection registry implements it; services stay transport-agnostic.
type DeviceSender interface {
	// SendCommand writes a command envelope to the device session. An error
	// means the transport write was not accepted.
	SendCommand(ctx context.Context, deviceID domain.DeviceID, cmd *domain.Command) error
	IsDeviceOnline(deviceID domain.DeviceID) bool
}

// ControllerBroadcaster fans a status event out to every controller session
// attached to the device. Delivery is best-effort per controller.
type ControllerBroadcaster interface {
	BroadcastStatus(deviceID domain.DeviceID, event StatusEvent)
}
